package admin

import "time"

// -------------------------
// License DTOs
// -------------------------

type LicenseSummary struct {
	LicenseKey      string     `json:"licenseKey"`
	Email           string     `json:"email"`
	Status          string     `json:"status"`
	Plan            string     `json:"plan"`
	LicenseType     string     `json:"licenseType"`
	MaxDevices      int        `json:"maxDevices"`
	ActiveDevices   int        `json:"activeDevices"`
	Cancelled       bool       `json:"cancelled"`
	SubscriptionID  string     `json:"subscriptionId,omitempty"`
	NextBillingDate *time.Time `json:"nextBillingDate,omitempty"`
	UpdatesEndDate  *time.Time `json:"updatesEndDate,omitempty"`
	PurchaseDate    time.Time  `json:"purchaseDate"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type DeviceSummary struct {
	DeviceID    string    `json:"deviceId"`
	OS          string    `json:"os"`
	Hostname    string    `json:"hostname"`
	Arch        string    `json:"arch"`
	Platform    string    `json:"platform"`
	ActivatedAt time.Time `json:"activatedAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

type LicenseDetail struct {
	LicenseSummary
	FirebaseUID string          `json:"firebaseUid,omitempty"`
	Devices     []DeviceSummary `json:"devices"`
}

type LinkRequest struct {
	FirebaseUID string `json:"firebaseUid"`
}

// -------------------------
// Product DTOs
// -------------------------

type ProductRequest struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	LicenseType  string `json:"licenseType"`
	MaxDevices   int    `json:"maxDevices"`
	UpdatesYears int    `json:"updatesYears"`
	IsTeam       bool   `json:"isTeam"`
}

// -------------------------
// Webhook ledger DTOs
// -------------------------

type WebhookRecord struct {
	WebhookID   string    `json:"webhookId"`
	EventType   string    `json:"eventType"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processedAt"`
}
