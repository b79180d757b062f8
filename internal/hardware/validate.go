package hardware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
)

// Validation errors
var (
	ErrMissingField = errors.New("missing required hardware field")
	ErrIDLength     = errors.New("hardware id must be 64 hex characters")
	ErrIDMismatch   = errors.New("hardware id does not match reported attributes")
)

var hexID = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ValidateFormat checks that all required hardware fields are present and
// non-empty. Unknown extra fields are tolerated (they simply never reach the
// hash), but a missing required field always fails.
func ValidateFormat(info *Info) error {
	required := []struct {
		name  string
		value string
	}{
		{"os", info.OS},
		{"hostname", info.Hostname},
		{"arch", info.Arch},
		{"platform", info.Platform},
		{"hardwareId", info.HardwareID},
	}

	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

// VerifyConsistency binds the client-asserted hardware ID to the reported
// attributes: it must be a well-formed SHA-256 hex digest AND match the
// server-side recomputation over the required fields plus the secret.
func VerifyConsistency(info *Info, secret string) error {
	if !hexID.MatchString(info.HardwareID) {
		return ErrIDLength
	}

	expected := ComputeID(info, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(info.HardwareID)) != 1 {
		return ErrIDMismatch
	}
	return nil
}
