package device

import (
	"errors"
	"time"
)

// Validation errors
var (
	ErrNotFound     = errors.New("device not found")
	ErrLimitReached = errors.New("device limit reached")
)

// Device is one activated machine bound to a license. The device id is
// client-generated; the hardware id is the server-verified fingerprint.
type Device struct {
	LicenseID   int64     `db:"license_id"`
	DeviceID    string    `db:"device_id"`
	OS          string    `db:"os"`
	Hostname    string    `db:"hostname"`
	Arch        string    `db:"arch"`
	Platform    string    `db:"platform"`
	HardwareID  string    `db:"hardware_id"`
	CPUs        string    `db:"cpus"`
	Memory      string    `db:"memory"`
	ActivatedAt time.Time `db:"activated_at"`
	LastUsedAt  time.Time `db:"last_used_at"`
}
