package device

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
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

func (s *Service) Get(ctx context.Context, licenseID int64, deviceID string) (*Device, error) {
	return s.repo.Get(ctx, licenseID, deviceID)
}

func (s *Service) GetForLicense(ctx context.Context, licenseID int64) ([]Device, error) {
	return s.repo.GetForLicense(ctx, licenseID)
}

func (s *Service) Count(ctx context.Context, licenseID int64) (int, error) {
	return s.repo.Count(ctx, licenseID)
}

// Activate binds the device to the license, enforcing the device allowance
// atomically. Returns ErrLimitReached when the quota is full.
func (s *Service) Activate(ctx context.Context, d *Device, maxDevices int) error {
	ok, err := s.repo.InsertIfUnderLimit(ctx, d, maxDevices)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLimitReached
	}
	return nil
}

func (s *Service) TouchLastUsed(ctx context.Context, licenseID int64, deviceID string, at time.Time) error {
	return s.repo.TouchLastUsed(ctx, licenseID, deviceID, at)
}

// Remove deletes the binding. Returns false (no error) when it was not there.
func (s *Service) Remove(ctx context.Context, licenseID int64, deviceID string) (bool, error) {
	return s.repo.Delete(ctx, licenseID, deviceID)
}

// RemoveAll clears every binding for a license within the caller's
// transaction. Used by revocation, which must leave no devices behind.
func (s *Service) RemoveAll(ctx context.Context, tx *sqlx.Tx, licenseID int64) error {
	return s.repo.DeleteForLicense(ctx, tx, licenseID)
}
