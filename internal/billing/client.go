// Package billing talks to the payment provider's REST API for the two
// things webhooks cannot cover: live subscription state (reconciliation)
// and customer-initiated cancellation.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

// Subscription status values as the provider reports them.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
	StatusFailed    = "failed"
)

// Subscription is the provider's view of a recurring purchase.
type Subscription struct {
	SubscriptionID  string    `json:"subscription_id"`
	Status          string    `json:"status"`
	NextBillingDate time.Time `json:"next_billing_date"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a provider client with a bounded timeout. The timeout
// matters: reconciliation runs inside device-validation requests and must
// degrade to stale state instead of stalling the desktop app.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	url := fmt.Sprintf("%s/subscriptions/%s", c.baseURL, subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSubscriptionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get subscription %s: status %d", subscriptionID, resp.StatusCode)
	}

	var sub Subscription
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("decode subscription %s: %w", subscriptionID, err)
	}
	return &sub, nil
}

// CancelSubscription asks the provider to stop billing at the end of the
// current period. The local cancelled flag is set by the caller afterwards.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	body, _ := json.Marshal(map[string]string{"status": "cancelled"})

	url := fmt.Sprintf("%s/subscriptions/%s", c.baseURL, subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSubscriptionNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("cancel subscription %s: status %d", subscriptionID, resp.StatusCode)
	}
	return nil
}
