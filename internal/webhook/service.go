package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"supasidebar.com/licserver/internal/device"
	"supasidebar.com/licserver/internal/license"
	"supasidebar.com/licserver/internal/notify"
	"supasidebar.com/licserver/internal/product"
	"supasidebar.com/licserver/internal/sqlite"
)

// Service verifies, deduplicates and dispatches payment-provider webhooks.
// Every delivery past header validation is answered HTTP 200: processing
// failures are recorded in the ledger for operators, never surfaced to the
// provider, so a permanently-broken payload cannot cause a retry storm.
type Service struct {
	db         *sqlx.DB
	secret     string
	ledger     Repository
	licenseSvc *license.Service
	deviceSvc  *device.Service
	productSvc *product.Service
	notifier   notify.Notifier
}

func NewService(
	db *sqlx.DB,
	secret string,
	licenseSvc *license.Service,
	deviceSvc *device.Service,
	productSvc *product.Service,
	notifier notify.Notifier,
) *Service {
	return &Service{
		db:         db,
		secret:     secret,
		ledger:     NewRepository(db),
		licenseSvc: licenseSvc,
		deviceSvc:  deviceSvc,
		productSvc: productSvc,
		notifier:   notifier,
	}
}

func (s *Service) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Recent exposes the ledger tail for the admin API.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	return s.ledger.Recent(ctx, limit)
}

// Handle processes one delivery. The returned error is non-nil only for
// header validation failures (the caller's one legitimate 400); every other
// outcome is expressed through the success flag.
func (s *Service) Handle(ctx context.Context, payload []byte, id, timestamp, signature string) (bool, error) {
	if err := ValidateHeaders(id, timestamp, signature, time.Now()); err != nil {
		return false, err
	}

	// Dedupe fast path: at-most-once side effects under the provider's
	// at-least-once delivery.
	if existing, err := s.ledger.Get(ctx, id); err != nil {
		log.Printf("webhook %s: ledger lookup: %v", id, err)
		return false, nil
	} else if existing != nil {
		log.Printf("webhook %s: duplicate delivery, skipping", id)
		return true, nil
	}

	eventType, procErr := s.process(ctx, payload, id, timestamp, signature)

	rec := &Record{
		WebhookID:   id,
		EventType:   eventType,
		Status:      StatusSuccess,
		Payload:     string(payload),
		ProcessedAt: time.Now().UTC(),
	}
	if procErr != nil {
		rec.Status = StatusError
	}

	if err := s.ledger.Insert(ctx, rec); err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			// A concurrent duplicate delivery won the insert; the unique
			// index on webhook_id guarantees a single ledger record.
			log.Printf("webhook %s: concurrent duplicate, skipping", id)
			return true, nil
		}
		log.Printf("webhook %s: ledger insert: %v", id, err)
	}

	if procErr != nil {
		log.Printf("webhook %s (%s): processing failed: %v", id, eventType, procErr)
		return false, nil
	}
	return true, nil
}

// process verifies the signature, classifies the event and runs its handler.
// Returns the event type (for the ledger) and the processing error, if any.
func (s *Service) process(ctx context.Context, payload []byte, id, timestamp, signature string) (string, error) {
	if err := VerifySignature(s.secret, id, timestamp, payload, signature); err != nil {
		return "", err
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch env.Type {
	case EventPaymentSucceeded:
		return string(env.Type), s.handlePaymentSucceeded(ctx, env.Data)
	case EventSubscriptionActive:
		return string(env.Type), s.handleSubscriptionActive(ctx, env.Data)
	case EventSubscriptionRenewed:
		return string(env.Type), s.handleSubscriptionRenewed(ctx, env.Data)
	case EventSubscriptionCancelled:
		return string(env.Type), s.handleSubscriptionCancelled(ctx, env.Data)
	case EventSubscriptionExpired, EventSubscriptionFailed:
		return string(env.Type), s.handleSubscriptionEnded(ctx, env.Type, env.Data)
	case EventRefundSucceeded:
		return string(env.Type), s.handleRefundSucceeded(ctx, env.Data)
	}

	log.Printf("webhook %s: ignoring unhandled event type %q", id, env.Type)
	return string(env.Type), nil
}

// handlePaymentSucceeded creates a license for one-time purchases. Payments
// that belong to a subscription are acknowledged and left to
// subscription.active, which carries the billing schedule.
func (s *Service) handlePaymentSucceeded(ctx context.Context, raw json.RawMessage) error {
	var data PaymentData
	if err := decodeData(raw, &data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if data.SubscriptionID != "" {
		log.Printf("payment %s belongs to subscription %s, no license created", data.PaymentID, data.SubscriptionID)
		return nil
	}

	item := data.ProductCart[0]
	prod, err := s.productSvc.Get(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if prod == nil {
		return fmt.Errorf("payment %s: %w: %s", data.PaymentID, product.ErrUnknownProduct, item.ProductID)
	}

	purchaseDate := data.CreatedAt
	if purchaseDate.IsZero() {
		purchaseDate = time.Now().UTC()
	}

	var updatesEnd *time.Time
	if years := prod.UpdatesWindowYears(); years > 0 {
		t := purchaseDate.AddDate(years, 0, 0)
		updatesEnd = &t
	}

	lic := license.NewOneTime(
		data.Customer.Email,
		prod.LicenseType,
		prod.DeviceAllowance(item.Quantity),
		data.PaymentID,
		data.TotalAmount,
		purchaseDate,
		updatesEnd,
	)

	created, isNew, err := s.licenseSvc.Create(ctx, lic)
	if err != nil {
		return err
	}
	if !isNew {
		// Replayed payment under a fresh webhook id: the license exists
		// and keeps its original device allowance.
		log.Printf("payment %s: license %s already exists", data.PaymentID, created.LicenseKey)
		return nil
	}

	log.Printf("payment %s: created %s license %s for %s", data.PaymentID, created.LicenseType, created.LicenseKey, created.Email)
	if err := s.notifier.LicenseCreated(ctx, created.Email, created.LicenseKey, created.LicenseType.PlanName()); err != nil {
		log.Printf("payment %s: notify: %v", data.PaymentID, err)
	}
	return nil
}

// handleSubscriptionActive creates the license for a new subscription, or
// refreshes plan type and billing date when the license already exists
// (plan changes arrive as a fresh subscription.active).
func (s *Service) handleSubscriptionActive(ctx context.Context, raw json.RawMessage) error {
	var data SubscriptionData
	if err := decodeData(raw, &data); err != nil {
		return err
	}

	licType := license.TypeMonthly
	if data.PaymentFrequencyInterval == "Year" {
		licType = license.TypeYearly
	}

	existing, err := s.licenseSvc.GetBySubscriptionID(ctx, data.SubscriptionID)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := data.ValidateBilling(); err != nil {
			return err
		}
		return s.licenseSvc.UpdateSubscriptionPlan(ctx, existing.LicenseID, licType, data.NextBillingDate)
	}

	if err := data.ValidateForCreate(); err != nil {
		return err
	}

	maxDevices := 2
	prod, err := s.productSvc.Get(ctx, data.ProductID)
	if err != nil {
		return err
	}
	if prod != nil {
		maxDevices = prod.DeviceAllowance(data.Quantity)
	} else {
		// Unlike one-time payments, a subscription for an uncatalogued SKU
		// still gets a license; the customer already paid. Log it so the
		// missing catalog row gets fixed.
		log.Printf("subscription %s: product %s not in catalog, defaulting to %d devices", data.SubscriptionID, data.ProductID, maxDevices)
	}

	createdAt := data.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	lic := license.NewSubscription(
		data.Customer.Email,
		licType,
		maxDevices,
		data.SubscriptionID,
		data.RecurringPreTaxAmount,
		createdAt,
		data.NextBillingDate,
	)

	created, isNew, err := s.licenseSvc.Create(ctx, lic)
	if err != nil {
		return err
	}
	if !isNew {
		log.Printf("subscription %s: license %s already exists", data.SubscriptionID, created.LicenseKey)
		return nil
	}

	log.Printf("subscription %s: created %s license %s for %s", data.SubscriptionID, licType, created.LicenseKey, created.Email)
	if err := s.notifier.LicenseCreated(ctx, created.Email, created.LicenseKey, licType.PlanName()); err != nil {
		log.Printf("subscription %s: notify: %v", data.SubscriptionID, err)
	}
	return nil
}

// handleSubscriptionRenewed advances the billing date. A renewal for an
// unknown subscription is logged but deliberately does not create anything.
func (s *Service) handleSubscriptionRenewed(ctx context.Context, raw json.RawMessage) error {
	var data SubscriptionData
	if err := decodeData(raw, &data); err != nil {
		return err
	}
	if err := data.ValidateBilling(); err != nil {
		return err
	}

	lic, err := s.licenseSvc.GetBySubscriptionID(ctx, data.SubscriptionID)
	if err != nil {
		return err
	}
	if lic == nil {
		log.Printf("renewal for unknown subscription %s, ignoring", data.SubscriptionID)
		return nil
	}

	return s.licenseSvc.UpdateNextBillingDate(ctx, lic.LicenseID, data.NextBillingDate)
}

// handleSubscriptionCancelled is intentionally log-only: cancellation intent
// is tracked through reconciliation, and revocation waits for
// subscription.expired/failed or grace-period expiry.
func (s *Service) handleSubscriptionCancelled(_ context.Context, raw json.RawMessage) error {
	var data SubscriptionData
	if err := decodeData(raw, &data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	log.Printf("subscription %s cancelled at provider", data.SubscriptionID)
	return nil
}

func (s *Service) handleSubscriptionEnded(ctx context.Context, event EventType, raw json.RawMessage) error {
	var data SubscriptionData
	if err := decodeData(raw, &data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	log.Printf("subscription %s ended (%s), revoking license", data.SubscriptionID, event)
	return s.revokeBySubscriptionID(ctx, data.SubscriptionID)
}

func (s *Service) handleRefundSucceeded(ctx context.Context, raw json.RawMessage) error {
	var data RefundData
	if err := decodeData(raw, &data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if data.SubscriptionID != "" {
		log.Printf("refund %s: revoking subscription %s", data.RefundID, data.SubscriptionID)
		return s.revokeBySubscriptionID(ctx, data.SubscriptionID)
	}

	log.Printf("refund %s: revoking payment %s", data.RefundID, data.PaymentID)
	lic, err := s.licenseSvc.GetByPurchaseID(ctx, data.PaymentID)
	if err != nil {
		return err
	}
	if lic == nil {
		return fmt.Errorf("refund %s: no license for payment %s", data.RefundID, data.PaymentID)
	}
	return s.revoke(ctx, lic)
}

func (s *Service) revokeBySubscriptionID(ctx context.Context, subscriptionID string) error {
	lic, err := s.licenseSvc.GetBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if lic == nil {
		return fmt.Errorf("no license for subscription %s", subscriptionID)
	}
	return s.revoke(ctx, lic)
}

// revoke moves the license to its terminal state and clears every device
// binding in the same transaction (a revoked license holds no devices).
func (s *Service) revoke(ctx context.Context, lic *license.License) error {
	if lic.Status == license.StatusRevoked {
		return nil
	}
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.licenseSvc.Revoke(ctx, tx, lic.LicenseID); err != nil {
			return err
		}
		return s.deviceSvc.RemoveAll(ctx, tx, lic.LicenseID)
	})
}
