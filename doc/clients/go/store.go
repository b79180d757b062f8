// sample implementation, do not build or test
//go:build ignore

package main

// Local registration storage so the app keeps working offline between
// validation checks.

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

const (
	appDirName       = "SupaSidebar"
	registrationFile = "registration.json"
	deviceIDFile     = "device_id"
)

// Registration is the locally cached activation state plus the license key
// and when the server last confirmed it.
type Registration struct {
	LicenseKey  string             `json:"licenseKey"`
	Email       string             `json:"email"`
	ValidatedAt time.Time          `json:"validatedAt"`
	License     ActivationResponse `json:"license"`
}

// storageDirectory returns the per-user app data directory, creating it if
// needed. Uses os.UserConfigDir so it lands in ~/Library/Application Support
// on macOS, %AppData% on Windows and ~/.config on Linux.
func storageDirectory() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	path := filepath.Join(base, appDirName)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

func registrationPath() (string, error) {
	dir, err := storageDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, registrationFile), nil
}

func deviceIDPath() (string, error) {
	dir, err := storageDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, deviceIDFile), nil
}

// SaveRegistration caches a confirmed activation locally.
func SaveRegistration(licenseKey, email string, resp *ActivationResponse) error {
	path, err := registrationPath()
	if err != nil {
		return err
	}

	reg := Registration{
		LicenseKey:  licenseKey,
		Email:       email,
		ValidatedAt: time.Now().UTC(),
		License:     *resp,
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadRegistration loads the cached registration. Returns nil and no error
// when nothing is cached yet.
func LoadRegistration() (*Registration, error) {
	path, err := registrationPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var reg Registration
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// OfflineGraceOK reports whether the cached registration is still fresh
// enough to trust without reaching the server. Keep this window generous;
// users on planes should not get locked out.
func OfflineGraceOK(reg *Registration, maxAge time.Duration) bool {
	if reg == nil {
		return false
	}
	if reg.License.Status != "active" {
		return false
	}
	return time.Since(reg.ValidatedAt) <= maxAge
}

// DeleteRegistration clears the cache, for example after a deactivation.
func DeleteRegistration() error {
	path, err := registrationPath()
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
