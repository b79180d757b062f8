package activation

import (
	"errors"
	"time"

	"supasidebar.com/licserver/internal/hardware"
)

// GracePeriod is how long a cancelled subscription keeps working past its
// paid period. Gives users whose renewal charge is still settling, or who
// cancel mid-period, a buffer before the app locks.
const GracePeriod = 48 * time.Hour

var ErrSubscriptionLapsed = errors.New("subscription lapsed")

type Request struct {
	LicenseKey string        `json:"licenseKey"`
	Email      string        `json:"email"`
	DeviceID   string        `json:"deviceId"`
	Hardware   hardware.Info `json:"hardwareInfo"`
}

type DeactivateRequest struct {
	LicenseKey string `json:"licenseKey"`
	DeviceID   string `json:"deviceId"`
}

type DeviceInfo struct {
	DeviceID    string    `json:"deviceId"`
	Hostname    string    `json:"hostname"`
	ActivatedAt time.Time `json:"activatedAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

// Response is the license/device summary returned by both activation and
// validation calls.
type Response struct {
	Status         string     `json:"status"`
	Email          string     `json:"email"`
	Plan           string     `json:"plan"`
	LicenseType    string     `json:"licenseType"`
	MaxDevices     int        `json:"maxDevices"`
	ActiveDevices  int        `json:"activeDevices"`
	UpdatesEndDate *time.Time `json:"updatesEndDate"`
	Device         DeviceInfo `json:"device"`
}
