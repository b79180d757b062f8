package webhook

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestValidateHeaders(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ts := fmt.Sprint(now.Unix())

	t.Run("accepts well-formed headers", func(t *testing.T) {
		if err := ValidateHeaders("msg_1", ts, "v1,c2lnbmF0dXJl", now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("accepts multiple signatures", func(t *testing.T) {
		if err := ValidateHeaders("msg_1", ts, "v1,Zmlyc3Q= v2,c2Vjb25k", now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects missing headers", func(t *testing.T) {
		for _, hdrs := range [][3]string{
			{"", ts, "v1,c2ln"},
			{"msg_1", "", "v1,c2ln"},
			{"msg_1", ts, ""},
		} {
			if err := ValidateHeaders(hdrs[0], hdrs[1], hdrs[2], now); !errors.Is(err, ErrMissingHeaders) {
				t.Fatalf("expected ErrMissingHeaders for %v, got %v", hdrs, err)
			}
		}
	})

	t.Run("rejects malformed signature entries", func(t *testing.T) {
		for _, sig := range []string{"nonsense", "v1:c2ln", "v1,", "v1,c2ln extra,bad"} {
			if err := ValidateHeaders("msg_1", ts, sig, now); !errors.Is(err, ErrBadSignatureFmt) {
				t.Fatalf("expected ErrBadSignatureFmt for %q, got %v", sig, err)
			}
		}
	})

	t.Run("rejects non-numeric timestamp", func(t *testing.T) {
		if err := ValidateHeaders("msg_1", "yesterday", "v1,c2ln", now); !errors.Is(err, ErrBadTimestamp) {
			t.Fatalf("expected ErrBadTimestamp, got %v", err)
		}
	})

	t.Run("rejects stale timestamp", func(t *testing.T) {
		stale := fmt.Sprint(now.Add(-Tolerance - time.Second).Unix())
		if err := ValidateHeaders("msg_1", stale, "v1,c2ln", now); !errors.Is(err, ErrBadTimestamp) {
			t.Fatalf("expected ErrBadTimestamp, got %v", err)
		}
	})

	t.Run("rejects future timestamp beyond tolerance", func(t *testing.T) {
		future := fmt.Sprint(now.Add(Tolerance + time.Second).Unix())
		if err := ValidateHeaders("msg_1", future, "v1,c2ln", now); !errors.Is(err, ErrBadTimestamp) {
			t.Fatalf("expected ErrBadTimestamp, got %v", err)
		}
	})

	t.Run("accepts slight clock skew", func(t *testing.T) {
		skewed := fmt.Sprint(now.Add(2 * time.Minute).Unix())
		if err := ValidateHeaders("msg_1", skewed, "v1,c2ln", now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestVerifySignature(t *testing.T) {
	const secret = "test-webhook-secret"
	payload := []byte(`{"type":"payment.succeeded"}`)

	sig, err := Sign(secret, "msg_1", "1700000000", payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		if err := VerifySignature(secret, "msg_1", "1700000000", payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		if err := VerifySignature("other-secret", "msg_1", "1700000000", payload, sig); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("rejects tampered payload", func(t *testing.T) {
		if err := VerifySignature(secret, "msg_1", "1700000000", []byte(`{"type":"refund.succeeded"}`), sig); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("rejects replay under different id", func(t *testing.T) {
		if err := VerifySignature(secret, "msg_2", "1700000000", payload, sig); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("any valid entry in a multi-signature header passes", func(t *testing.T) {
		header := "v1,Ym9ndXM= " + sig
		if err := VerifySignature(secret, "msg_1", "1700000000", payload, header); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("whsec-prefixed secret", func(t *testing.T) {
		prefixed := "whsec_" + base64.StdEncoding.EncodeToString([]byte("raw-key-material"))
		sig, err := Sign(prefixed, "msg_1", "1700000000", payload)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if err := VerifySignature(prefixed, "msg_1", "1700000000", payload, sig); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// The prefixed form and the raw key must agree.
		if err := VerifySignature(prefixed, "msg_1", "1700000000", payload, mustSign(t, "raw-key-material", "msg_1", "1700000000", payload)); err != nil {
			t.Fatalf("raw key and whsec form disagree: %v", err)
		}
	})
}

func mustSign(t *testing.T, secret, id, timestamp string, payload []byte) string {
	t.Helper()
	sig, err := Sign(secret, id, timestamp, payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}
