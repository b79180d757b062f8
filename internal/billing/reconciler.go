package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"supasidebar.com/licserver/internal/cache"
	"supasidebar.com/licserver/internal/license"
)

// SubscriptionAPI is the slice of the provider client reconciliation needs.
type SubscriptionAPI interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

// Reconciler opportunistically re-syncs stored subscription state against
// the provider. The store stays the source of truth; the provider is
// advisory. Every failure here is logged and swallowed - a provider outage
// must never lock out a paying user.
type Reconciler struct {
	api        SubscriptionAPI
	licenseSvc *license.Service
	cache      cache.Cache
	ttl        time.Duration
}

func NewReconciler(api SubscriptionAPI, licenseSvc *license.Service, c cache.Cache, ttl time.Duration) *Reconciler {
	return &Reconciler{
		api:        api,
		licenseSvc: licenseSvc,
		cache:      c,
		ttl:        ttl,
	}
}

// Reconcile fetches live subscription state and heals drift on the license,
// both in the store and on the in-memory struct so the caller's subsequent
// checks (grace period, response building) see fresh values. No-op for
// non-subscription licenses.
func (r *Reconciler) Reconcile(ctx context.Context, lic *license.License) {
	if !lic.LicenseType.IsSubscription() || !lic.SubscriptionID.Valid {
		return
	}
	subID := lic.SubscriptionID.String

	sub := r.lookup(ctx, subID)
	if sub == nil {
		return // stale state wins over no state
	}

	if sub.Status == StatusActive && !sub.NextBillingDate.IsZero() {
		stored := lic.NextBillingDate
		if !stored.Valid || !stored.Time.Equal(sub.NextBillingDate) {
			if err := r.licenseSvc.UpdateNextBillingDate(ctx, lic.LicenseID, sub.NextBillingDate); err != nil {
				log.Printf("reconcile %s: update next billing date: %v", subID, err)
				return
			}
			lic.NextBillingDate = sql.NullTime{Time: sub.NextBillingDate, Valid: true}
			log.Printf("reconcile %s: next billing date healed", subID)
		}
	}

	if sub.Status == StatusCancelled && !lic.Cancelled {
		now := time.Now().UTC()
		if err := r.licenseSvc.MarkCancelled(ctx, lic.LicenseID, now); err != nil {
			log.Printf("reconcile %s: mark cancelled: %v", subID, err)
			return
		}
		lic.Cancelled = true
		lic.CancelledAt = sql.NullTime{Time: now, Valid: true}
		log.Printf("reconcile %s: provider-side cancellation observed", subID)
	}
}

// lookup returns the provider's subscription state, via the cache when a
// recent answer exists. Returns nil on any failure.
func (r *Reconciler) lookup(ctx context.Context, subID string) *Subscription {
	key := "billing:sub:" + subID

	if cached, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		var sub Subscription
		if err := json.Unmarshal([]byte(cached), &sub); err == nil {
			return &sub
		}
	}

	sub, err := r.api.GetSubscription(ctx, subID)
	if err != nil {
		log.Printf("reconcile %s: provider fetch failed, using stored state: %v", subID, err)
		return nil
	}

	if raw, err := json.Marshal(sub); err == nil {
		if err := r.cache.Set(ctx, key, string(raw), r.ttl); err != nil {
			log.Printf("reconcile %s: cache set: %v", subID, err)
		}
	}
	return sub
}
