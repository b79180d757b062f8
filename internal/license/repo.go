package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetByKey(ctx context.Context, licenseKey string) (*License, error)
	GetByKeyEmail(ctx context.Context, licenseKey, email string) (*License, error)
	GetActiveByKeyEmail(ctx context.Context, licenseKey, email string) (*License, error)
	GetByEmail(ctx context.Context, email string) ([]License, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*License, error)
	GetByPurchaseID(ctx context.Context, purchaseID string) (*License, error)

	Create(ctx context.Context, tx *sqlx.Tx, lic *License) (int64, error)
	UpdateNextBillingDate(ctx context.Context, licenseID int64, next time.Time) error
	UpdateSubscriptionPlan(ctx context.Context, licenseID int64, t Type, next time.Time) error
	MarkCancelled(ctx context.Context, licenseID int64, at time.Time) error
	Revoke(ctx context.Context, tx *sqlx.Tx, licenseID int64) error
	SetFirebaseUID(ctx context.Context, licenseID int64, uid string) error
	TouchValidation(ctx context.Context, licenseID int64, at time.Time) error
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

// get runs a single-row lookup. Absent rows are (nil, nil): callers decide
// whether "missing" is an error for their flow.
func (r *repo) get(ctx context.Context, query string, args ...any) (*License, error) {
	var lic License
	err := r.db.GetContext(ctx, &lic, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}
	return &lic, nil
}

func (r *repo) GetByKey(ctx context.Context, licenseKey string) (*License, error) {
	return r.get(ctx, getByKeySQL, licenseKey)
}

func (r *repo) GetByKeyEmail(ctx context.Context, licenseKey, email string) (*License, error) {
	return r.get(ctx, getByKeyEmailSQL, licenseKey, strings.ToLower(email))
}

func (r *repo) GetActiveByKeyEmail(ctx context.Context, licenseKey, email string) (*License, error) {
	return r.get(ctx, getActiveByKeyEmailSQL, licenseKey, strings.ToLower(email))
}

func (r *repo) GetByEmail(ctx context.Context, email string) ([]License, error) {
	var out []License
	err := r.db.SelectContext(ctx, &out, getByEmailSQL, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("get licenses by email: %w", err)
	}
	return out, nil
}

func (r *repo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*License, error) {
	return r.get(ctx, getBySubscriptionIDSQL, subscriptionID)
}

func (r *repo) GetByPurchaseID(ctx context.Context, purchaseID string) (*License, error) {
	return r.get(ctx, getByPurchaseIDSQL, purchaseID)
}

func (r *repo) Create(ctx context.Context, tx *sqlx.Tx, lic *License) (int64, error) {
	res, err := tx.ExecContext(ctx, createLicenseSQL,
		lic.LicenseKey,
		strings.ToLower(lic.Email),
		lic.Status,
		lic.LicenseType,
		lic.MaxDevices,
		lic.PurchaseID,
		lic.PurchaseAmount,
		lic.PurchaseDate,
		lic.UpdatesEndDate,
		lic.SubscriptionID,
		lic.NextBillingDate,
	)
	if err != nil {
		return 0, fmt.Errorf("create license: %w", err)
	}
	return res.LastInsertId()
}

func (r *repo) UpdateNextBillingDate(ctx context.Context, licenseID int64, next time.Time) error {
	_, err := r.db.ExecContext(ctx, updateNextBillingDateSQL, next, licenseID)
	if err != nil {
		return fmt.Errorf("update next billing date: %w", err)
	}
	return nil
}

func (r *repo) UpdateSubscriptionPlan(ctx context.Context, licenseID int64, t Type, next time.Time) error {
	_, err := r.db.ExecContext(ctx, updateSubscriptionPlanSQL, t, next, licenseID)
	if err != nil {
		return fmt.Errorf("update subscription plan: %w", err)
	}
	return nil
}

func (r *repo) MarkCancelled(ctx context.Context, licenseID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, markCancelledSQL, at, licenseID)
	if err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	return nil
}

func (r *repo) Revoke(ctx context.Context, tx *sqlx.Tx, licenseID int64) error {
	_, err := tx.ExecContext(ctx, revokeSQL, licenseID)
	if err != nil {
		return fmt.Errorf("revoke license: %w", err)
	}
	return nil
}

func (r *repo) SetFirebaseUID(ctx context.Context, licenseID int64, uid string) error {
	_, err := r.db.ExecContext(ctx, setFirebaseUIDSQL, uid, licenseID)
	if err != nil {
		return fmt.Errorf("set firebase uid: %w", err)
	}
	return nil
}

func (r *repo) TouchValidation(ctx context.Context, licenseID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, touchValidationSQL, at, licenseID)
	if err != nil {
		return fmt.Errorf("touch validation: %w", err)
	}
	return nil
}
