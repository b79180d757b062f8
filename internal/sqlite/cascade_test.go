package sqlite_test

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"supasidebar.com/licserver/internal/testutil"
)

// Device rows must follow their license row. License rows are normally
// revoked rather than deleted, but the schema still guarantees no orphans.
func TestDeviceCascadeDelete(t *testing.T) {
	db := testutil.NewTestDB(t)

	res, err := db.Exec(`
		INSERT INTO license (license_key, email, license_type, max_devices, purchase_id, purchase_amount, purchase_date)
		VALUES ('SSB-CASCADE-TEST', 'cascade@example.com', 'lifetime', 2, 'pay_cascade', 4900, '2026-01-01 00:00:00')`)
	if err != nil {
		t.Fatalf("insert license: %v", err)
	}
	licenseID, _ := res.LastInsertId()

	_, err = db.Exec(`
		INSERT INTO device (license_id, device_id, os, hostname, arch, platform, hardware_id, activated_at, last_used_at)
		VALUES (?, 'dev-1', 'macOS', 'h', 'arm64', 'darwin', 'abc', '2026-01-01 00:00:00', '2026-01-01 00:00:00')`,
		licenseID)
	if err != nil {
		t.Fatalf("insert device: %v", err)
	}

	if _, err := db.Exec(`DELETE FROM license WHERE license_id = ?`, licenseID); err != nil {
		t.Fatalf("delete license: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM device WHERE license_id = ?`, licenseID).Scan(&count); err != nil {
		t.Fatalf("count devices: %v", err)
	}
	if count != 0 {
		t.Errorf("expected devices to cascade, found %d", count)
	}
}

// Unique indexes back the idempotency guarantees: one license per purchase,
// one license per subscription, one binding per (license, device).
func TestUniqueConstraints(t *testing.T) {
	db := testutil.NewTestDB(t)

	insertLicense := func(key, purchaseID, subID string) error {
		if subID == "" {
			_, err := db.Exec(`
				INSERT INTO license (license_key, email, license_type, max_devices, purchase_id, purchase_amount, purchase_date)
				VALUES (?, 'u@example.com', 'lifetime', 1, ?, 100, '2026-01-01 00:00:00')`, key, purchaseID)
			return err
		}
		_, err := db.Exec(`
			INSERT INTO license (license_key, email, license_type, max_devices, purchase_id, purchase_amount, purchase_date, subscription_id)
			VALUES (?, 'u@example.com', 'monthly', 1, ?, 100, '2026-01-01 00:00:00', ?)`, key, purchaseID, subID)
		return err
	}

	if err := insertLicense("SSB-U1", "pay_u1", ""); err != nil {
		t.Fatalf("insert: %v", err)
	}

	t.Run("duplicate license key", func(t *testing.T) {
		if err := insertLicense("SSB-U1", "pay_u2", ""); err == nil {
			t.Error("expected unique violation on license_key")
		}
	})

	t.Run("duplicate purchase id", func(t *testing.T) {
		if err := insertLicense("SSB-U2", "pay_u1", ""); err == nil {
			t.Error("expected unique violation on purchase_id")
		}
	})

	t.Run("duplicate subscription id", func(t *testing.T) {
		if err := insertLicense("SSB-U3", "sub_u1", "sub_u1"); err != nil {
			t.Fatalf("insert subscription: %v", err)
		}
		if err := insertLicense("SSB-U4", "pay_u4", "sub_u1"); err == nil {
			t.Error("expected unique violation on subscription_id")
		}
	})

	t.Run("duplicate device binding", func(t *testing.T) {
		var licenseID int64
		if err := db.QueryRow(`SELECT license_id FROM license WHERE license_key = 'SSB-U1'`).Scan(&licenseID); err != nil {
			t.Fatalf("lookup license: %v", err)
		}

		insert := func() error {
			_, err := db.Exec(`
				INSERT INTO device (license_id, device_id, os, hostname, arch, platform, hardware_id, activated_at, last_used_at)
				VALUES (?, 'dev-u', 'macOS', 'h', 'arm64', 'darwin', 'abc', '2026-01-01 00:00:00', '2026-01-01 00:00:00')`,
				licenseID)
			return err
		}
		if err := insert(); err != nil {
			t.Fatalf("insert device: %v", err)
		}
		if err := insert(); err == nil {
			t.Error("expected unique violation on (license_id, device_id)")
		}
	})
}
