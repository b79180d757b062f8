package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"supasidebar.com/licserver/internal/sqlite"
)

type Repository interface {
	Get(ctx context.Context, licenseID int64, deviceID string) (*Device, error)
	GetForLicense(ctx context.Context, licenseID int64) ([]Device, error)
	Count(ctx context.Context, licenseID int64) (int, error)
	InsertIfUnderLimit(ctx context.Context, d *Device, maxDevices int) (bool, error)
	TouchLastUsed(ctx context.Context, licenseID int64, deviceID string, at time.Time) error
	Delete(ctx context.Context, licenseID int64, deviceID string) (bool, error)
	DeleteForLicense(ctx context.Context, tx *sqlx.Tx, licenseID int64) error
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, licenseID int64, deviceID string) (*Device, error) {
	var d Device
	err := r.db.GetContext(ctx, &d, getDeviceSQL, licenseID, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return &d, nil
}

func (r *repo) GetForLicense(ctx context.Context, licenseID int64) ([]Device, error) {
	var out []Device
	err := r.db.SelectContext(ctx, &out, getForLicenseSQL, licenseID)
	if err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}
	return out, nil
}

func (r *repo) Count(ctx context.Context, licenseID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, countForLicenseSQL, licenseID); err != nil {
		return 0, fmt.Errorf("count devices: %w", err)
	}
	return n, nil
}

// InsertIfUnderLimit appends the binding only while the license is under its
// device allowance. Returns false when the quota is full. A unique-constraint
// violation (the same device raced another activation of itself) counts as
// success: the binding exists either way.
func (r *repo) InsertIfUnderLimit(ctx context.Context, d *Device, maxDevices int) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertIfUnderLimitSQL,
		d.LicenseID,
		d.DeviceID,
		d.OS,
		d.Hostname,
		d.Arch,
		d.Platform,
		d.HardwareID,
		d.CPUs,
		d.Memory,
		d.ActivatedAt,
		d.LastUsedAt,
		d.LicenseID,
		maxDevices,
	)
	if err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			return true, nil
		}
		return false, fmt.Errorf("insert device: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert device: %w", err)
	}
	return n > 0, nil
}

func (r *repo) TouchLastUsed(ctx context.Context, licenseID int64, deviceID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, touchLastUsedSQL, at, licenseID, deviceID)
	if err != nil {
		return fmt.Errorf("touch device: %w", err)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, licenseID int64, deviceID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteDeviceSQL, licenseID, deviceID)
	if err != nil {
		return false, fmt.Errorf("delete device: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete device: %w", err)
	}
	return n > 0, nil
}

func (r *repo) DeleteForLicense(ctx context.Context, tx *sqlx.Tx, licenseID int64) error {
	_, err := tx.ExecContext(ctx, deleteForLicenseSQL, licenseID)
	if err != nil {
		return fmt.Errorf("delete devices for license: %w", err)
	}
	return nil
}
