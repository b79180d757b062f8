package admin

import (
	"context"
	"time"

	"supasidebar.com/licserver/internal/backup"
	"supasidebar.com/licserver/internal/device"
	"supasidebar.com/licserver/internal/license"
	"supasidebar.com/licserver/internal/product"
	"supasidebar.com/licserver/internal/webhook"
)

// SubscriptionCanceller cancels a subscription at the payment provider.
type SubscriptionCanceller interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Service backs the admin dashboard API. It composes the domain services
// and translates their models into transport DTOs.
type Service struct {
	licenseSvc *license.Service
	deviceSvc  *device.Service
	productSvc *product.Service
	webhookSvc *webhook.Service
	backupSvc  *backup.Service
	canceller  SubscriptionCanceller
}

func NewService(
	licenseSvc *license.Service,
	deviceSvc *device.Service,
	productSvc *product.Service,
	webhookSvc *webhook.Service,
	backupSvc *backup.Service,
	canceller SubscriptionCanceller,
) *Service {
	return &Service{
		licenseSvc: licenseSvc,
		deviceSvc:  deviceSvc,
		productSvc: productSvc,
		webhookSvc: webhookSvc,
		backupSvc:  backupSvc,
		canceller:  canceller,
	}
}

func (s *Service) LicensesByEmail(ctx context.Context, email string) ([]LicenseSummary, error) {
	licenses, err := s.licenseSvc.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	out := make([]LicenseSummary, 0, len(licenses))
	for i := range licenses {
		count, err := s.deviceSvc.Count(ctx, licenses[i].LicenseID)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(&licenses[i], count))
	}
	return out, nil
}

func (s *Service) LicenseDetails(ctx context.Context, licenseKey string) (*LicenseDetail, error) {
	lic, err := s.licenseSvc.GetByKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		return nil, license.ErrNotFound
	}

	devices, err := s.deviceSvc.GetForLicense(ctx, lic.LicenseID)
	if err != nil {
		return nil, err
	}

	detail := &LicenseDetail{
		LicenseSummary: summarize(lic, len(devices)),
		Devices:        make([]DeviceSummary, 0, len(devices)),
	}
	if lic.FirebaseUID.Valid {
		detail.FirebaseUID = lic.FirebaseUID.String
	}
	for _, d := range devices {
		detail.Devices = append(detail.Devices, DeviceSummary{
			DeviceID:    d.DeviceID,
			OS:          d.OS,
			Hostname:    d.Hostname,
			Arch:        d.Arch,
			Platform:    d.Platform,
			ActivatedAt: d.ActivatedAt,
			LastUsedAt:  d.LastUsedAt,
		})
	}
	return detail, nil
}

func (s *Service) LinkFirebaseUID(ctx context.Context, licenseKey, uid string) error {
	return s.licenseSvc.LinkFirebaseUID(ctx, licenseKey, uid)
}

func (s *Service) ValidateLicense(ctx context.Context, licenseKey, email string) (bool, error) {
	return s.licenseSvc.Validate(ctx, licenseKey, email)
}

// CancelSubscription cancels at the provider first, then marks the license
// cancelled locally. The subscription keeps serving until the paid period
// plus grace runs out; the webhook pipeline handles the eventual expiry.
func (s *Service) CancelSubscription(ctx context.Context, licenseKey string) error {
	lic, err := s.licenseSvc.GetByKey(ctx, licenseKey)
	if err != nil {
		return err
	}
	if lic == nil {
		return license.ErrNotFound
	}
	if !lic.SubscriptionID.Valid {
		return license.ErrNotSubscription
	}

	if err := s.canceller.CancelSubscription(ctx, lic.SubscriptionID.String); err != nil {
		return err
	}
	return s.licenseSvc.MarkCancelled(ctx, lic.LicenseID, time.Now().UTC())
}

// RemoveDevice detaches a device from a license. Returns device.ErrNotFound
// when the binding does not exist.
func (s *Service) RemoveDevice(ctx context.Context, licenseKey, deviceID string) error {
	lic, err := s.licenseSvc.GetByKey(ctx, licenseKey)
	if err != nil {
		return err
	}
	if lic == nil {
		return license.ErrNotFound
	}

	removed, err := s.deviceSvc.Remove(ctx, lic.LicenseID, deviceID)
	if err != nil {
		return err
	}
	if !removed {
		return device.ErrNotFound
	}
	return nil
}

func (s *Service) RecentWebhooks(ctx context.Context, limit int) ([]WebhookRecord, error) {
	records, err := s.webhookSvc.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]WebhookRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, WebhookRecord{
			WebhookID:   rec.WebhookID,
			EventType:   rec.EventType,
			Status:      string(rec.Status),
			ProcessedAt: rec.ProcessedAt,
		})
	}
	return out, nil
}

func (s *Service) Products(ctx context.Context) ([]product.Product, error) {
	return s.productSvc.GetAll(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, p *product.Product) error {
	return s.productSvc.Create(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, p *product.Product) error {
	return s.productSvc.Update(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	return s.productSvc.Delete(ctx, productID)
}

func (s *Service) Backup(ctx context.Context) (*backup.Result, error) {
	return s.backupSvc.Create(ctx)
}

func summarize(lic *license.License, activeDevices int) LicenseSummary {
	sum := LicenseSummary{
		LicenseKey:    lic.LicenseKey,
		Email:         lic.Email,
		Status:        string(lic.Status),
		Plan:          lic.LicenseType.PlanName(),
		LicenseType:   string(lic.LicenseType),
		MaxDevices:    lic.MaxDevices,
		ActiveDevices: activeDevices,
		Cancelled:     lic.Cancelled,
		PurchaseDate:  lic.PurchaseDate,
		CreatedAt:     lic.CreatedAt,
	}
	if lic.SubscriptionID.Valid {
		sum.SubscriptionID = lic.SubscriptionID.String
	}
	if lic.NextBillingDate.Valid {
		t := lic.NextBillingDate.Time
		sum.NextBillingDate = &t
	}
	if lic.UpdatesEndDate.Valid {
		t := lic.UpdatesEndDate.Time
		sum.UpdatesEndDate = &t
	}
	return sum
}
