package product

import (
	"errors"

	"supasidebar.com/licserver/internal/license"
)

// Validation errors
var (
	ErrUnknownProduct     = errors.New("unknown product")
	ErrInvalidLicenseType = errors.New("invalid license type")
	ErrInvalidDeviceCount = errors.New("max devices must be at least 1")
)

// Product maps a payment-provider SKU to the entitlement it grants. Team
// SKUs take their device count from the purchased quantity instead of
// MaxDevices.
type Product struct {
	ProductID    string       `db:"product_id" json:"productId"`
	ProductName  string       `db:"product_name" json:"productName"`
	LicenseType  license.Type `db:"license_type" json:"licenseType"`
	MaxDevices   int          `db:"max_devices" json:"maxDevices"`
	UpdatesYears int          `db:"updates_years" json:"updatesYears"`
	IsTeam       bool         `db:"is_team" json:"isTeam"`
}

// Validate checks business rules for a catalog entry
func (p *Product) Validate() error {
	switch p.LicenseType {
	case license.TypeMonthly, license.TypeYearly, license.TypeLifetime, license.TypeLifetimeBasic:
	default:
		return ErrInvalidLicenseType
	}
	if p.MaxDevices < 1 {
		return ErrInvalidDeviceCount
	}
	return nil
}

// DeviceAllowance resolves the device count for a purchase of the given
// quantity. Only team SKUs scale with quantity.
func (p *Product) DeviceAllowance(quantity int) int {
	if p.IsTeam && quantity > 0 {
		return quantity
	}
	return p.MaxDevices
}

// UpdatesWindowYears is how many years of free updates the purchase carries;
// 0 means no bounded updates window (nil updatesEndDate). Team purchases
// always get a one-year window.
func (p *Product) UpdatesWindowYears() int {
	if p.IsTeam && p.UpdatesYears == 0 {
		return 1
	}
	return p.UpdatesYears
}
