package search

import (
	"context"
	"time"

	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/provider"
	"github.com/aks-o/voxlink-sub005/store"
)

// ReserveNumber holds a number with the named provider. The number's cached
// details are dropped and the reservation is recorded when a repository is
// configured.
func (o *Orchestrator) ReserveNumber(ctx context.Context, req provider.ReserveRequest) (*provider.Reservation, error) {
	ctx, span := o.tracer.Start(ctx, "search.reserve")
	res, err := o.providers.ReserveNumber(ctx, req)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	o.forgetDetails(ctx, res.PhoneNumber)
	o.record(ctx, &store.NumberRecord{
		PhoneNumber:   res.PhoneNumber,
		Provider:      res.Provider,
		Status:        store.StatusReserved,
		AccountID:     req.Customer.AccountID,
		ReservationID: res.ReservationID,
		ExpiresAt:     nonZero(res.ExpiresAt),
	})
	return res, nil
}

// PurchaseNumber converts a reservation into an owned number.
func (o *Orchestrator) PurchaseNumber(ctx context.Context, req provider.PurchaseRequest) (*provider.Purchase, error) {
	ctx, span := o.tracer.Start(ctx, "search.purchase")
	p, err := o.providers.PurchaseNumber(ctx, req)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	phone := p.PhoneNumber
	if phone == "" {
		phone = req.PhoneNumber
	}
	o.forgetDetails(ctx, phone)

	accountID := req.Billing.AccountID
	if accountID == "" {
		accountID = req.Customer.AccountID
	}
	o.record(ctx, &store.NumberRecord{
		PhoneNumber:   phone,
		Provider:      p.Provider,
		Status:        store.StatusPurchased,
		AccountID:     accountID,
		ReservationID: req.ReservationID,
		PurchaseID:    p.PurchaseID,
	})
	return p, nil
}

// InitiatePorting asks the named provider to port a number in.
func (o *Orchestrator) InitiatePorting(ctx context.Context, req provider.PortRequest) (*provider.PortResult, error) {
	ctx, span := o.tracer.Start(ctx, "search.port")
	res, err := o.providers.PortNumber(ctx, req)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	o.forgetDetails(ctx, res.PhoneNumber)
	if res.Status != provider.PortRejected {
		o.record(ctx, &store.NumberRecord{
			PhoneNumber: res.PhoneNumber,
			Provider:    res.Provider,
			Status:      store.StatusPorting,
			AccountID:   req.Customer.AccountID,
			PortingID:   res.PortingID,
			ExpiresAt:   res.EstimatedCompletion,
		})
	}
	return res, nil
}

// Record returns the stored state of phoneNumber, or nil when none exists
// or no repository is configured.
func (o *Orchestrator) Record(ctx context.Context, phoneNumber string) (*store.NumberRecord, error) {
	if o.config.Repository == nil {
		return nil, nil
	}
	return o.config.Repository.FindByPhoneNumber(ctx, phoneNumber)
}

// record persists rec. Failures are logged; the provider operation has
// already succeeded and is not undone.
func (o *Orchestrator) record(ctx context.Context, rec *store.NumberRecord) {
	if o.config.Repository == nil {
		return
	}
	if err := o.config.Repository.Save(ctx, rec); err != nil {
		o.logger.Error(ctx, "failed to record number state",
			observe.F("phone_number", rec.PhoneNumber),
			observe.F("status", string(rec.Status)),
			observe.Err(err),
		)
	}
}

func (o *Orchestrator) forgetDetails(ctx context.Context, phoneNumber string) {
	if o.cache == nil || phoneNumber == "" {
		return
	}
	key := detailKey(phoneNumber)
	o.details.Forget(key)
	if err := o.cache.Delete(ctx, key); err != nil {
		o.cacheError(ctx, "delete", key, err)
	}
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ProviderStatus is a point-in-time view of every provider.
type ProviderStatus struct {
	Health      []provider.ProviderHealth  `json:"health"`
	Metrics     []provider.ProviderMetrics `json:"metrics"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// GetProviderStatus reports provider health and call metrics.
func (o *Orchestrator) GetProviderStatus() ProviderStatus {
	return ProviderStatus{
		Health:      o.providers.Health(),
		Metrics:     o.providers.Metrics(),
		GeneratedAt: o.config.Now(),
	}
}

// InvalidateTag removes every cached entry carrying tag and reports how
// many were removed.
func (o *Orchestrator) InvalidateTag(ctx context.Context, tag string) (int, error) {
	if o.cache == nil {
		return 0, nil
	}
	n, err := o.cache.InvalidateTag(ctx, tag)
	if err != nil {
		return 0, err
	}
	o.logger.Info(ctx, "cache invalidated", observe.F("tag", tag), observe.F("entries", n))
	return n, nil
}

// InvalidateCountry drops cached searches and details for a country.
func (o *Orchestrator) InvalidateCountry(ctx context.Context, country string) (int, error) {
	return o.InvalidateTag(ctx, countryTag(country))
}

// InvalidateArea drops cached searches for one area code. An empty area
// selects searches made without one.
func (o *Orchestrator) InvalidateArea(ctx context.Context, areaCode string) (int, error) {
	return o.InvalidateTag(ctx, areaTag(areaCode))
}

// InvalidateAll drops every cached search and detail lookup.
func (o *Orchestrator) InvalidateAll(ctx context.Context) (int, error) {
	searches, err := o.InvalidateTag(ctx, tagSearchResults)
	if err != nil {
		return searches, err
	}
	details, err := o.InvalidateTag(ctx, tagDetails)
	return searches + details, err
}
