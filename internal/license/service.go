package license

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"supasidebar.com/licserver/internal/sqlite"
)

type Service struct {
	repo Repository
	db   *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:   db,
		repo: New(db),
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

func (s *Service) GetByKey(ctx context.Context, licenseKey string) (*License, error) {
	return s.repo.GetByKey(ctx, licenseKey)
}

func (s *Service) GetByKeyEmail(ctx context.Context, licenseKey, email string) (*License, error) {
	return s.repo.GetByKeyEmail(ctx, licenseKey, email)
}

func (s *Service) GetActiveByKeyEmail(ctx context.Context, licenseKey, email string) (*License, error) {
	return s.repo.GetActiveByKeyEmail(ctx, licenseKey, email)
}

func (s *Service) GetByEmail(ctx context.Context, email string) ([]License, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*License, error) {
	return s.repo.GetBySubscriptionID(ctx, subscriptionID)
}

func (s *Service) GetByPurchaseID(ctx context.Context, purchaseID string) (*License, error) {
	return s.repo.GetByPurchaseID(ctx, purchaseID)
}

// Create persists a new license. If a license for the same purchase id
// already exists (replayed webhook, concurrent duplicate delivery) the
// existing row is returned instead: license creation is keyed on the
// provider's purchase/subscription id and is therefore idempotent.
func (s *Service) Create(ctx context.Context, lic *License) (*License, bool, error) {
	if err := lic.Validate(); err != nil {
		return nil, false, err
	}

	var id int64
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = s.repo.Create(ctx, tx, lic)
		return err
	})
	if err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			existing, gerr := s.repo.GetByPurchaseID(ctx, lic.PurchaseID)
			if gerr != nil {
				return nil, false, gerr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	lic.LicenseID = id
	return lic, true, nil
}

// Validate reports whether an active license exists for the key/email pair.
func (s *Service) Validate(ctx context.Context, licenseKey, email string) (bool, error) {
	lic, err := s.repo.GetActiveByKeyEmail(ctx, licenseKey, email)
	if err != nil {
		return false, err
	}
	return lic != nil, nil
}

func (s *Service) UpdateNextBillingDate(ctx context.Context, licenseID int64, next time.Time) error {
	return s.repo.UpdateNextBillingDate(ctx, licenseID, next)
}

func (s *Service) UpdateSubscriptionPlan(ctx context.Context, licenseID int64, t Type, next time.Time) error {
	return s.repo.UpdateSubscriptionPlan(ctx, licenseID, t, next)
}

func (s *Service) MarkCancelled(ctx context.Context, licenseID int64, at time.Time) error {
	return s.repo.MarkCancelled(ctx, licenseID, at)
}

// Revoke moves a license to the terminal revoked state within the caller's
// transaction. Device bindings must be cleared in the same transaction
// (a revoked license holds no devices).
func (s *Service) Revoke(ctx context.Context, tx *sqlx.Tx, licenseID int64) error {
	return s.repo.Revoke(ctx, tx, licenseID)
}

func (s *Service) LinkFirebaseUID(ctx context.Context, licenseKey, uid string) error {
	lic, err := s.repo.GetByKey(ctx, licenseKey)
	if err != nil {
		return err
	}
	if lic == nil {
		return ErrNotFound
	}
	return s.repo.SetFirebaseUID(ctx, lic.LicenseID, uid)
}

func (s *Service) TouchValidation(ctx context.Context, licenseID int64, at time.Time) error {
	return s.repo.TouchValidation(ctx, licenseID, at)
}
