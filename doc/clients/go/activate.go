// sample implementation, do not build or test
//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

type ActivationRequest struct {
	LicenseKey string       `json:"licenseKey"`
	Email      string       `json:"email"`
	DeviceID   string       `json:"deviceId"`
	Hardware   HardwareInfo `json:"hardwareInfo"`
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

type ActivationResponse struct {
	Status         string     `json:"status"`
	Email          string     `json:"email"`
	Plan           string     `json:"plan"`
	LicenseType    string     `json:"licenseType"`
	MaxDevices     int        `json:"maxDevices"`
	ActiveDevices  int        `json:"activeDevices"`
	UpdatesEndDate *time.Time `json:"updatesEndDate"`
	Device         DeviceInfo `json:"device"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// postJSON sends a request to the license server. Every client call carries
// an x-request-timestamp header in unix seconds; the server rejects requests
// more than a few minutes off its clock.
func postJSON(baseURL, path string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-timestamp", strconv.FormatInt(time.Now().Unix(), 10))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Code != "" {
			return &apiErr
		}
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ActivateLicense binds this device to the license and returns the license
// summary. Re-activating an already bound device is safe and returns the
// current state.
func ActivateLicense(baseURL, licenseKey, email string) (*ActivationResponse, error) {
	reqBody := ActivationRequest{
		LicenseKey: licenseKey,
		Email:      email,
		DeviceID:   GetDeviceID(),
		Hardware:   CollectHardwareInfo(),
	}

	var result ActivationResponse
	if err := postJSON(baseURL, "/api/v1/activate", reqBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateLicense re-checks the stored license against the server. Call this
// periodically on app launch; on network failure fall back to the cached
// registration (see store.go).
func ValidateLicense(baseURL, licenseKey, email string) (*ActivationResponse, error) {
	reqBody := ActivationRequest{
		LicenseKey: licenseKey,
		Email:      email,
		DeviceID:   GetDeviceID(),
		Hardware:   CollectHardwareInfo(),
	}

	var result ActivationResponse
	if err := postJSON(baseURL, "/api/v1/validate", reqBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeactivateLicense frees this device's slot so the license can be used on
// another machine. Safe to call even when the device was never activated.
func DeactivateLicense(baseURL, licenseKey string) error {
	reqBody := DeactivateRequest{
		LicenseKey: licenseKey,
		DeviceID:   GetDeviceID(),
	}
	return postJSON(baseURL, "/api/v1/deactivate", reqBody, nil)
}

// UpdatesAllowed reports whether this license still covers app updates
// released at releaseDate. Lifetime licenses without an updates window only
// cover the version purchased; subscriptions cover everything while active.
func UpdatesAllowed(resp *ActivationResponse, releaseDate time.Time) bool {
	if resp.UpdatesEndDate == nil {
		return resp.LicenseType == "monthly" || resp.LicenseType == "yearly"
	}
	return !releaseDate.After(*resp.UpdatesEndDate)
}
