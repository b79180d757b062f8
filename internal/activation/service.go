package activation

import (
	"context"
	"log"
	"time"

	"supasidebar.com/licserver/internal/device"
	"supasidebar.com/licserver/internal/hardware"
	"supasidebar.com/licserver/internal/license"
	"supasidebar.com/licserver/internal/notify"
)

// Reconciler re-syncs a subscription license against the payment provider.
// Implementations must swallow provider failures (stale state over lockout).
type Reconciler interface {
	Reconcile(ctx context.Context, lic *license.License)
}

// NopReconciler skips reconciliation entirely (tests, no provider configured).
type NopReconciler struct{}

func (NopReconciler) Reconcile(context.Context, *license.License) {}

type Service struct {
	hardwareSecret string
	licenseSvc     *license.Service
	deviceSvc      *device.Service
	reconciler     Reconciler
	notifier       notify.Notifier
}

func NewService(
	hardwareSecret string,
	licenseSvc *license.Service,
	deviceSvc *device.Service,
	reconciler Reconciler,
	notifier notify.Notifier,
) *Service {
	return &Service{
		hardwareSecret: hardwareSecret,
		licenseSvc:     licenseSvc,
		deviceSvc:      deviceSvc,
		reconciler:     reconciler,
		notifier:       notifier,
	}
}

// Activate binds a device to a license. Re-activating an already-bound
// device is not an error and does not consume a slot, so reinstalls and
// relaunches just work.
func (s *Service) Activate(ctx context.Context, req *Request) (*Response, error) {
	if err := hardware.ValidateFormat(&req.Hardware); err != nil {
		return nil, err
	}
	if err := hardware.VerifyConsistency(&req.Hardware, s.hardwareSecret); err != nil {
		log.Printf("activate %s/%s: hardware id check failed: %v", req.LicenseKey, req.DeviceID, err)
		return nil, err
	}

	// One lookup covers key, email and status. A miss stays a generic
	// not-found: callers must not learn which part was wrong.
	lic, err := s.licenseSvc.GetActiveByKeyEmail(ctx, req.LicenseKey, req.Email)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		return nil, license.ErrNotFound
	}

	now := time.Now().UTC()

	// Idempotent re-activation
	existing, err := s.deviceSvc.Get(ctx, lic.LicenseID, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.deviceSvc.TouchLastUsed(ctx, lic.LicenseID, req.DeviceID, now); err != nil {
			return nil, err
		}
		existing.LastUsedAt = now
		return s.buildResponse(ctx, lic, existing)
	}

	d := &device.Device{
		LicenseID:   lic.LicenseID,
		DeviceID:    req.DeviceID,
		OS:          req.Hardware.OS,
		Hostname:    req.Hardware.Hostname,
		Arch:        req.Hardware.Arch,
		Platform:    req.Hardware.Platform,
		HardwareID:  req.Hardware.HardwareID,
		CPUs:        req.Hardware.CPUs,
		Memory:      req.Hardware.Memory,
		ActivatedAt: now,
		LastUsedAt:  now,
	}
	if err := s.deviceSvc.Activate(ctx, d, lic.MaxDevices); err != nil {
		return nil, err
	}

	if err := s.notifier.DeviceActivated(ctx, lic.Email, lic.LicenseKey, d.DeviceID, d.Hostname); err != nil {
		log.Printf("activate %s/%s: notify: %v", lic.LicenseKey, d.DeviceID, err)
	}

	return s.buildResponse(ctx, lic, d)
}

// Deactivate removes a device binding. Returns false without error when the
// license or binding does not exist.
func (s *Service) Deactivate(ctx context.Context, licenseKey, deviceID string) (bool, error) {
	lic, err := s.licenseSvc.GetByKey(ctx, licenseKey)
	if err != nil {
		return false, err
	}
	if lic == nil {
		return false, nil
	}

	removed, err := s.deviceSvc.Remove(ctx, lic.LicenseID, deviceID)
	if err != nil {
		return false, err
	}
	if removed {
		if err := s.notifier.DeviceDeactivated(ctx, lic.Email, lic.LicenseKey, deviceID); err != nil {
			log.Printf("deactivate %s/%s: notify: %v", lic.LicenseKey, deviceID, err)
		}
	}
	return removed, nil
}

// Validate is the periodic entitlement re-check the desktop app makes.
// Reconciliation runs before the grace-period decision, so a renewal the
// provider knows about but never delivered restores access on this call,
// and a provider-side cancellation takes effect immediately.
func (s *Service) Validate(ctx context.Context, licenseKey, email, deviceID string) (*Response, error) {
	lic, err := s.licenseSvc.GetByKeyEmail(ctx, licenseKey, email)
	if err != nil {
		return nil, err
	}
	if lic == nil {
		return nil, license.ErrNotFound
	}

	now := time.Now().UTC()
	if err := s.licenseSvc.TouchValidation(ctx, lic.LicenseID, now); err != nil {
		return nil, err
	}

	if lic.Status != license.StatusActive {
		return nil, license.ErrNotFound
	}

	s.reconciler.Reconcile(ctx, lic)

	if !lic.InGracePeriod(now, GracePeriod) {
		log.Printf("validate %s/%s: cancelled subscription past grace period", licenseKey, deviceID)
		return nil, ErrSubscriptionLapsed
	}

	d, err := s.deviceSvc.Get(ctx, lic.LicenseID, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		// Deactivated elsewhere (dashboard, another device)
		return nil, device.ErrNotFound
	}

	if err := s.deviceSvc.TouchLastUsed(ctx, lic.LicenseID, deviceID, now); err != nil {
		return nil, err
	}
	d.LastUsedAt = now

	return s.buildResponse(ctx, lic, d)
}

func (s *Service) buildResponse(ctx context.Context, lic *license.License, d *device.Device) (*Response, error) {
	count, err := s.deviceSvc.Count(ctx, lic.LicenseID)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Status:        string(lic.Status),
		Email:         lic.Email,
		Plan:          lic.LicenseType.PlanName(),
		LicenseType:   string(lic.LicenseType),
		MaxDevices:    lic.MaxDevices,
		ActiveDevices: count,
		Device: DeviceInfo{
			DeviceID:    d.DeviceID,
			Hostname:    d.Hostname,
			ActivatedAt: d.ActivatedAt,
			LastUsedAt:  d.LastUsedAt,
		},
	}
	if lic.UpdatesEndDate.Valid {
		t := lic.UpdatesEndDate.Time
		resp.UpdatesEndDate = &t
	}
	return resp, nil
}
