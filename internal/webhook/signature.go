package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Header validation / signature errors
var (
	ErrMissingHeaders  = errors.New("missing webhook headers")
	ErrBadTimestamp    = errors.New("webhook timestamp invalid or outside tolerance")
	ErrBadSignatureFmt = errors.New("webhook signature header malformed")
	ErrBadSignature    = errors.New("webhook signature mismatch")
)

// Tolerance is the replay window for webhook timestamps.
const Tolerance = 5 * time.Minute

// versioned signature entries look like "v1,<base64>"
var signaturePattern = regexp.MustCompile(`^v\d+,[A-Za-z0-9+/=]+$`)

// ValidateHeaders checks presence and well-formedness of the three delivery
// headers. These failures are the only ones reported as HTTP 400 - the
// provider sent something that is not a webhook at all.
func ValidateHeaders(id, timestamp, signature string, now time.Time) error {
	if id == "" || timestamp == "" || signature == "" {
		return ErrMissingHeaders
	}

	for _, part := range strings.Fields(signature) {
		if !signaturePattern.MatchString(part) {
			return fmt.Errorf("%w: %q", ErrBadSignatureFmt, part)
		}
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadTimestamp, timestamp)
	}
	delta := now.Sub(time.Unix(ts, 0))
	if delta > Tolerance || delta < -Tolerance {
		return ErrBadTimestamp
	}

	return nil
}

// VerifySignature checks the HMAC-SHA256 signature over
// "<id>.<timestamp>.<payload>". The header may carry several
// space-separated signatures (key rotation); any valid v1 entry passes.
// Secrets may be raw or carry the provider's "whsec_" base64 prefix.
func VerifySignature(secret, id, timestamp string, payload []byte, header string) error {
	key, err := signingKey(secret)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, part := range strings.Fields(header) {
		version, sig, found := strings.Cut(part, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

func signingKey(secret string) ([]byte, error) {
	if rest, found := strings.CutPrefix(secret, "whsec_"); found {
		key, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("decode webhook secret: %w", err)
		}
		return key, nil
	}
	return []byte(secret), nil
}

// Sign produces a "v1,<base64>" signature for the given delivery. Used by
// tests and by the demo tooling to fabricate valid deliveries.
func Sign(secret, id, timestamp string, payload []byte) (string, error) {
	key, err := signingKey(secret)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
