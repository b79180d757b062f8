package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// EventType is the closed set of payment-provider events this server
// understands. Dispatch is an exhaustive switch; anything else is logged
// and ignored.
type EventType string

const (
	EventPaymentSucceeded      EventType = "payment.succeeded"
	EventSubscriptionActive    EventType = "subscription.active"
	EventSubscriptionRenewed   EventType = "subscription.renewed"
	EventSubscriptionCancelled EventType = "subscription.cancelled"
	EventSubscriptionExpired   EventType = "subscription.expired"
	EventSubscriptionFailed    EventType = "subscription.failed"
	EventRefundSucceeded       EventType = "refund.succeeded"
)

// Envelope is the outer shape of every delivery: a discriminating type and
// an event-specific data object, decoded strictly per event type.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PaymentData is the payload of payment.succeeded.
type PaymentData struct {
	PaymentID      string     `json:"payment_id"`
	TotalAmount    int64      `json:"total_amount"`
	Currency       string     `json:"currency"`
	Customer       Customer   `json:"customer"`
	SubscriptionID string     `json:"subscription_id"`
	ProductCart    []CartItem `json:"product_cart"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (d *PaymentData) Validate() error {
	if d.PaymentID == "" {
		return fmt.Errorf("%w: payment_id missing", ErrMalformedPayload)
	}
	if d.Customer.Email == "" {
		return fmt.Errorf("%w: customer email missing", ErrMalformedPayload)
	}
	// One-time payments must say what was bought
	if d.SubscriptionID == "" && len(d.ProductCart) == 0 {
		return fmt.Errorf("%w: product_cart missing", ErrMalformedPayload)
	}
	for _, item := range d.ProductCart {
		if item.ProductID == "" {
			return fmt.Errorf("%w: product_cart item without product_id", ErrMalformedPayload)
		}
	}
	return nil
}

// SubscriptionData is the payload of every subscription.* event.
type SubscriptionData struct {
	SubscriptionID           string    `json:"subscription_id"`
	Customer                 Customer  `json:"customer"`
	ProductID                string    `json:"product_id"`
	Quantity                 int       `json:"quantity"`
	RecurringPreTaxAmount    int64     `json:"recurring_pre_tax_amount"`
	PaymentFrequencyInterval string    `json:"payment_frequency_interval"`
	NextBillingDate          time.Time `json:"next_billing_date"`
	Status                   string    `json:"status"`
	CreatedAt                time.Time `json:"created_at"`
}

func (d *SubscriptionData) Validate() error {
	if d.SubscriptionID == "" {
		return fmt.Errorf("%w: subscription_id missing", ErrMalformedPayload)
	}
	return nil
}

// ValidateBilling additionally requires the billing schedule. Every path
// that writes next_billing_date must use this; accepting a date-less payload
// would stomp the stored date with the zero time and, for a cancelled
// license, start the grace clock at year one.
func (d *SubscriptionData) ValidateBilling() error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.NextBillingDate.IsZero() {
		return fmt.Errorf("%w: next_billing_date missing", ErrMalformedPayload)
	}
	return nil
}

// ValidateForCreate adds the fields only license creation needs.
func (d *SubscriptionData) ValidateForCreate() error {
	if err := d.ValidateBilling(); err != nil {
		return err
	}
	if d.Customer.Email == "" {
		return fmt.Errorf("%w: customer email missing", ErrMalformedPayload)
	}
	if d.ProductID == "" {
		return fmt.Errorf("%w: product_id missing", ErrMalformedPayload)
	}
	return nil
}

// RefundData is the payload of refund.succeeded.
type RefundData struct {
	RefundID       string   `json:"refund_id"`
	PaymentID      string   `json:"payment_id"`
	SubscriptionID string   `json:"subscription_id"`
	Customer       Customer `json:"customer"`
}

func (d *RefundData) Validate() error {
	if d.SubscriptionID == "" && d.PaymentID == "" {
		return fmt.Errorf("%w: refund carries neither subscription_id nor payment_id", ErrMalformedPayload)
	}
	return nil
}

// decodeData strictly decodes an event payload, rejecting malformed JSON.
func decodeData(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: data missing", ErrMalformedPayload)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
