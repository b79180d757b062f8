package device_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"supasidebar.com/licserver/internal/device"
	"supasidebar.com/licserver/internal/license"
	"supasidebar.com/licserver/internal/testutil"
)

func newLicense(t *testing.T, db *sqlx.DB, maxDevices int) *license.License {
	t.Helper()
	svc := license.NewService(db)
	lic, _, err := svc.Create(context.Background(),
		license.NewOneTime("dev@example.com", license.TypeLifetime, maxDevices, fmt.Sprintf("pay_%d_%d", maxDevices, time.Now().UnixNano()), 4900, time.Now().UTC(), nil))
	if err != nil {
		t.Fatalf("create license: %v", err)
	}
	return lic
}

func testDevice(licenseID int64, deviceID string) *device.Device {
	now := time.Now().UTC()
	return &device.Device{
		LicenseID:   licenseID,
		DeviceID:    deviceID,
		OS:          "macOS 15.2",
		Hostname:    deviceID + "-host",
		Arch:        "arm64",
		Platform:    "darwin",
		HardwareID:  "4c1f09a2e6b87d5304f1a9c2be6d7503a1f9c24e6b8d7035a1f9c2e46b8d7051",
		ActivatedAt: now,
		LastUsedAt:  now,
	}
}

func TestActivateEnforcesDeviceLimit(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := device.NewService(db)
	lic := newLicense(t, db, 2)

	if err := svc.Activate(ctx, testDevice(lic.LicenseID, "dev-1"), lic.MaxDevices); err != nil {
		t.Fatalf("first activation: %v", err)
	}
	if err := svc.Activate(ctx, testDevice(lic.LicenseID, "dev-2"), lic.MaxDevices); err != nil {
		t.Fatalf("second activation: %v", err)
	}

	err := svc.Activate(ctx, testDevice(lic.LicenseID, "dev-3"), lic.MaxDevices)
	if !errors.Is(err, device.ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}

	count, err := svc.Count(ctx, lic.LicenseID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 devices, got %d", count)
	}
}

func TestActivateIsIdempotentPerDevice(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := device.NewService(db)
	lic := newLicense(t, db, 1)

	if err := svc.Activate(ctx, testDevice(lic.LicenseID, "dev-1"), lic.MaxDevices); err != nil {
		t.Fatalf("first activation: %v", err)
	}

	// Re-activating the same device must succeed even though the quota is
	// full: the binding already exists and consumes no extra slot.
	if err := svc.Activate(ctx, testDevice(lic.LicenseID, "dev-1"), lic.MaxDevices); err != nil {
		t.Fatalf("re-activation: %v", err)
	}

	count, _ := svc.Count(ctx, lic.LicenseID)
	if count != 1 {
		t.Fatalf("expected 1 device, got %d", count)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := device.NewService(db)
	lic := newLicense(t, db, 1)

	if err := svc.Activate(ctx, testDevice(lic.LicenseID, "dev-1"), lic.MaxDevices); err != nil {
		t.Fatalf("activate: %v", err)
	}

	removed, err := svc.Remove(ctx, lic.LicenseID, "dev-1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report true")
	}

	// Removing again is a silent no-op.
	removed, err = svc.Remove(ctx, lic.LicenseID, "dev-1")
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if removed {
		t.Fatal("second removal must report false")
	}

	// The freed slot can be reused.
	if err := svc.Activate(ctx, testDevice(lic.LicenseID, "dev-2"), lic.MaxDevices); err != nil {
		t.Fatalf("activate after remove: %v", err)
	}
}

func TestRemoveAllWithinTransaction(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := device.NewService(db)
	licSvc := license.NewService(db)
	lic := newLicense(t, db, 3)

	for i := 1; i <= 3; i++ {
		if err := svc.Activate(ctx, testDevice(lic.LicenseID, fmt.Sprintf("dev-%d", i)), lic.MaxDevices); err != nil {
			t.Fatalf("activate dev-%d: %v", i, err)
		}
	}

	err := licSvc.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := licSvc.Revoke(ctx, tx, lic.LicenseID); err != nil {
			return err
		}
		return svc.RemoveAll(ctx, tx, lic.LicenseID)
	})
	if err != nil {
		t.Fatalf("revoke tx: %v", err)
	}

	count, _ := svc.Count(ctx, lic.LicenseID)
	if count != 0 {
		t.Fatalf("expected 0 devices after revoke, got %d", count)
	}
}

func TestTouchLastUsed(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := device.NewService(db)
	lic := newLicense(t, db, 1)

	d := testDevice(lic.LicenseID, "dev-1")
	d.LastUsedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := svc.Activate(ctx, d, lic.MaxDevices); err != nil {
		t.Fatalf("activate: %v", err)
	}

	at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	if err := svc.TouchLastUsed(ctx, lic.LicenseID, "dev-1", at); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := svc.Get(ctx, lic.LicenseID, "dev-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("device not found")
	}
	if !got.LastUsedAt.Equal(at) {
		t.Fatalf("last_used_at not updated: %v", got.LastUsedAt)
	}
}
