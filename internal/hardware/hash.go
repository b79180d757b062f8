package hardware

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Info carries the raw hardware attributes a desktop client reports when
// activating or validating a device.
type Info struct {
	OS         string `json:"os"`
	Hostname   string `json:"hostname"`
	Arch       string `json:"arch"`
	Platform   string `json:"platform"`
	HardwareID string `json:"hardwareId"`
	CPUs       string `json:"cpus,omitempty"`
	Memory     string `json:"memory,omitempty"`
}

// canonicalString builds the string hashed into a hardware ID: the required
// fields sorted alphabetically by field name, values concatenated with no
// separators. Only the stable descriptors participate; cpus/memory are
// informational and excluded so a RAM upgrade does not invalidate a device.
func canonicalString(info *Info) string {
	fields := map[string]string{
		"arch":     info.Arch,
		"hostname": info.Hostname,
		"os":       info.OS,
		"platform": info.Platform,
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fields[k])
	}
	return b.String()
}

// ComputeID derives the server-verifiable hardware ID for the given
// attributes. The secret is appended before hashing so clients cannot forge
// IDs for devices they do not control.
// Format: hex(SHA256(canonicalString + secret)) -> 64 lowercase hex chars
func ComputeID(info *Info, secret string) string {
	sum := sha256.Sum256([]byte(canonicalString(info) + secret))
	return hex.EncodeToString(sum[:])
}
