// Package notify sends transactional email events through the marketing
// platform's events API. Every call is best-effort: callers log failures and
// move on, an email outage must never fail a license operation.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Notifier interface {
	LicenseCreated(ctx context.Context, email, licenseKey, plan string) error
	DeviceActivated(ctx context.Context, email, licenseKey, deviceID, hostname string) error
	DeviceDeactivated(ctx context.Context, email, licenseKey, deviceID string) error
}

// Client posts events to the email platform's /v1/events endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type eventRequest struct {
	Email           string            `json:"email"`
	EventName       string            `json:"eventName"`
	EventProperties map[string]string `json:"eventProperties,omitempty"`
}

func (c *Client) send(ctx context.Context, email, eventName string, props map[string]string) error {
	body, err := json.Marshal(eventRequest{
		Email:           email,
		EventName:       eventName,
		EventProperties: props,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/events/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send %s event: %w", eventName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send %s event: status %d", eventName, resp.StatusCode)
	}
	return nil
}

func (c *Client) LicenseCreated(ctx context.Context, email, licenseKey, plan string) error {
	return c.send(ctx, email, "license_created", map[string]string{
		"licenseKey": licenseKey,
		"plan":       plan,
	})
}

func (c *Client) DeviceActivated(ctx context.Context, email, licenseKey, deviceID, hostname string) error {
	return c.send(ctx, email, "device_activated", map[string]string{
		"licenseKey": licenseKey,
		"deviceId":   deviceID,
		"hostname":   hostname,
	})
}

func (c *Client) DeviceDeactivated(ctx context.Context, email, licenseKey, deviceID string) error {
	return c.send(ctx, email, "device_deactivated", map[string]string{
		"licenseKey": licenseKey,
		"deviceId":   deviceID,
	})
}

// Nop is used in tests and when no email API key is configured.
type Nop struct{}

func (Nop) LicenseCreated(context.Context, string, string, string) error { return nil }

func (Nop) DeviceActivated(context.Context, string, string, string, string) error { return nil }

func (Nop) DeviceDeactivated(context.Context, string, string, string) error { return nil }
