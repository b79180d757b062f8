// Package demodata seeds a demo deployment with sample licenses, device
// bindings and webhook ledger entries.
package demodata

import (
	"database/sql"
	"embed"
	"fmt"
)

//go:embed sample.sql
var sampleSQL embed.FS

// Load runs the embedded sample script. Only call this on a freshly created
// database after migrations; the script assumes an empty license table.
func Load(db *sql.DB) error {
	data, err := sampleSQL.ReadFile("sample.sql")
	if err != nil {
		return err
	}

	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("load demo data: %w", err)
	}
	return nil
}
