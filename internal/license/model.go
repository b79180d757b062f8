package license

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation errors
var (
	ErrNotFound               = errors.New("license not found")
	ErrSubscriptionIDRequired = errors.New("subscription licenses require a subscription id")
	ErrSubscriptionIDInvalid  = errors.New("one-time licenses cannot carry a subscription id")
	ErrInvalidDeviceCount     = errors.New("max devices must be at least 1")
	ErrNotSubscription        = errors.New("license is not a subscription")
)

// Type classifies the entitlement a license grants.
type Type string

const (
	TypeMonthly       Type = "monthly"
	TypeYearly        Type = "yearly"
	TypeLifetime      Type = "lifetime"
	TypeLifetimeBasic Type = "lifetime_basic"
)

// IsSubscription reports whether the type bills on a recurring schedule.
func (t Type) IsSubscription() bool {
	return t == TypeMonthly || t == TypeYearly
}

// PlanName is the customer-facing plan label returned to the desktop app.
func (t Type) PlanName() string {
	switch t {
	case TypeMonthly:
		return "Monthly"
	case TypeYearly:
		return "Yearly"
	case TypeLifetime:
		return "Lifetime"
	case TypeLifetimeBasic:
		return "Lifetime Basic"
	}
	return string(t)
}

// Status of a license. Revoked is terminal; rows are never deleted.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

type License struct {
	LicenseID          int64          `db:"license_id"`
	LicenseKey         string         `db:"license_key"`
	Email              string         `db:"email"`
	FirebaseUID        sql.NullString `db:"firebase_uid"`
	Status             Status         `db:"status"`
	LicenseType        Type           `db:"license_type"`
	MaxDevices         int            `db:"max_devices"`
	PurchaseID         string         `db:"purchase_id"`
	PurchaseAmount     int64          `db:"purchase_amount"`
	PurchaseDate       time.Time      `db:"purchase_date"`
	UpdatesEndDate     sql.NullTime   `db:"updates_end_date"`
	SubscriptionID     sql.NullString `db:"subscription_id"`
	NextBillingDate    sql.NullTime   `db:"next_billing_date"`
	Cancelled          bool           `db:"cancelled"`
	CancelledAt        sql.NullTime   `db:"cancelled_at"`
	LastValidationDate sql.NullTime   `db:"last_validation_date"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// Validate checks the cross-field rules every stored license must satisfy:
// a subscription id is present exactly when the type is recurring, and the
// device allowance is positive.
func (l *License) Validate() error {
	if l.MaxDevices < 1 {
		return ErrInvalidDeviceCount
	}
	if l.LicenseType.IsSubscription() && !l.SubscriptionID.Valid {
		return ErrSubscriptionIDRequired
	}
	if !l.LicenseType.IsSubscription() && l.SubscriptionID.Valid {
		return ErrSubscriptionIDInvalid
	}
	return nil
}

// InGracePeriod reports whether a cancelled subscription is still inside the
// window where access remains valid: the paid period plus the grace buffer.
// Non-cancelled licenses are always in good standing.
func (l *License) InGracePeriod(now time.Time, grace time.Duration) bool {
	if !l.Cancelled {
		return true
	}
	if !l.NextBillingDate.Valid {
		return false
	}
	return !now.After(l.NextBillingDate.Time.Add(grace))
}

// GenerateKey produces a new opaque license key.
func GenerateKey() string {
	return "SSB-" + strings.ToUpper(uuid.NewString())
}

// NewOneTime builds an unsaved lifetime/basic license for a one-time payment.
func NewOneTime(email string, t Type, maxDevices int, purchaseID string, amount int64, purchaseDate time.Time, updatesEnd *time.Time) *License {
	l := &License{
		LicenseKey:     GenerateKey(),
		Email:          strings.ToLower(email),
		Status:         StatusActive,
		LicenseType:    t,
		MaxDevices:     maxDevices,
		PurchaseID:     purchaseID,
		PurchaseAmount: amount,
		PurchaseDate:   purchaseDate,
	}
	if updatesEnd != nil {
		l.UpdatesEndDate = sql.NullTime{Time: *updatesEnd, Valid: true}
	}
	return l
}

// NewSubscription builds an unsaved recurring license. The subscription id
// doubles as the purchase id so creation stays idempotent under webhook
// replays.
func NewSubscription(email string, t Type, maxDevices int, subscriptionID string, amount int64, purchaseDate, nextBilling time.Time) *License {
	return &License{
		LicenseKey:      GenerateKey(),
		Email:           strings.ToLower(email),
		Status:          StatusActive,
		LicenseType:     t,
		MaxDevices:      maxDevices,
		PurchaseID:      subscriptionID,
		PurchaseAmount:  amount,
		PurchaseDate:    purchaseDate,
		SubscriptionID:  sql.NullString{String: subscriptionID, Valid: true},
		NextBillingDate: sql.NullTime{Time: nextBilling, Valid: true},
	}
}
