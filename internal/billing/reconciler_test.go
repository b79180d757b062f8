package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"supasidebar.com/licserver/internal/billing"
	"supasidebar.com/licserver/internal/cache"
	"supasidebar.com/licserver/internal/license"
	"supasidebar.com/licserver/internal/testutil"
)

// fakeAPI serves canned subscription states and counts provider calls.
type fakeAPI struct {
	subs  map[string]*billing.Subscription
	err   error
	calls int
}

func (f *fakeAPI) GetSubscription(_ context.Context, subscriptionID string) (*billing.Subscription, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	return sub, nil
}

func newSubscriptionLicense(t *testing.T, svc *license.Service, subID string, next time.Time) *license.License {
	t.Helper()
	lic, _, err := svc.Create(context.Background(),
		license.NewSubscription("grace@example.com", license.TypeMonthly, 2, subID, 500, time.Now().UTC().AddDate(0, -1, 0), next))
	if err != nil {
		t.Fatalf("create license: %v", err)
	}
	return lic
}

func TestReconcileHealsNextBillingDate(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := license.NewService(db)

	stale := time.Now().UTC().Add(-10 * 24 * time.Hour)
	lic := newSubscriptionLicense(t, svc, "sub_heal", stale)

	// Provider knows about a renewal this server never received.
	fresh := time.Now().UTC().Add(20 * 24 * time.Hour).Truncate(time.Second)
	api := &fakeAPI{subs: map[string]*billing.Subscription{
		"sub_heal": {SubscriptionID: "sub_heal", Status: billing.StatusActive, NextBillingDate: fresh},
	}}

	r := billing.NewReconciler(api, svc, cache.NewMemory(), time.Minute)
	r.Reconcile(ctx, lic)

	if !lic.NextBillingDate.Time.Equal(fresh) {
		t.Fatalf("in-memory struct not healed: %v", lic.NextBillingDate.Time)
	}
	stored, _ := svc.GetBySubscriptionID(ctx, "sub_heal")
	if !stored.NextBillingDate.Time.Equal(fresh) {
		t.Fatalf("store not healed: %v", stored.NextBillingDate.Time)
	}
}

func TestReconcileObservesProviderCancellation(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := license.NewService(db)

	lic := newSubscriptionLicense(t, svc, "sub_cxl", time.Now().UTC().AddDate(0, 1, 0))

	api := &fakeAPI{subs: map[string]*billing.Subscription{
		"sub_cxl": {SubscriptionID: "sub_cxl", Status: billing.StatusCancelled},
	}}

	r := billing.NewReconciler(api, svc, cache.NewMemory(), time.Minute)
	r.Reconcile(ctx, lic)

	if !lic.Cancelled {
		t.Fatal("in-memory struct not marked cancelled")
	}
	stored, _ := svc.GetBySubscriptionID(ctx, "sub_cxl")
	if !stored.Cancelled {
		t.Fatal("store not marked cancelled")
	}
}

func TestReconcileProviderFailureKeepsStoredState(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := license.NewService(db)

	next := time.Now().UTC().AddDate(0, 1, 0)
	lic := newSubscriptionLicense(t, svc, "sub_down", next)

	api := &fakeAPI{err: errors.New("provider unreachable")}
	r := billing.NewReconciler(api, svc, cache.NewMemory(), time.Minute)
	r.Reconcile(ctx, lic)

	if lic.Cancelled {
		t.Fatal("provider outage must not change license state")
	}
	stored, _ := svc.GetBySubscriptionID(ctx, "sub_down")
	if !stored.NextBillingDate.Time.Equal(lic.NextBillingDate.Time) {
		t.Fatal("stored state changed during provider outage")
	}
}

func TestReconcileUsesCache(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := license.NewService(db)

	lic := newSubscriptionLicense(t, svc, "sub_cached", time.Now().UTC().AddDate(0, 1, 0))

	api := &fakeAPI{subs: map[string]*billing.Subscription{
		"sub_cached": {SubscriptionID: "sub_cached", Status: billing.StatusActive, NextBillingDate: lic.NextBillingDate.Time},
	}}

	r := billing.NewReconciler(api, svc, cache.NewMemory(), time.Minute)
	r.Reconcile(ctx, lic)
	r.Reconcile(ctx, lic)

	if api.calls != 1 {
		t.Fatalf("expected 1 provider call with a warm cache, got %d", api.calls)
	}
}

func TestReconcileSkipsNonSubscriptions(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := license.NewService(db)

	lic, _, err := svc.Create(ctx, license.NewOneTime("ada@example.com", license.TypeLifetime, 1, "pay_skip", 4900, time.Now().UTC(), nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	api := &fakeAPI{}
	r := billing.NewReconciler(api, svc, cache.NewMemory(), time.Minute)
	r.Reconcile(ctx, lic)

	if api.calls != 0 {
		t.Fatalf("lifetime licenses must not hit the provider, got %d calls", api.calls)
	}
}
