package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aks-o/voxlink-sub005/cache"
	"github.com/aks-o/voxlink-sub005/provider"
	"github.com/aks-o/voxlink-sub005/store"
)

var errVendorDown = errors.New("vendor down")

// fakeProviders is a scripted Providers.
type fakeProviders struct {
	search func(ctx context.Context, req provider.SearchRequest) (*provider.SearchResponse, error)
	avail  func(ctx context.Context, phone string) (bool, error)
	serves func(country string) bool

	searchCalls atomic.Int32
	availCalls  atomic.Int32

	mu       sync.Mutex
	requests []provider.SearchRequest
}

var _ Providers = (*fakeProviders)(nil)

func (f *fakeProviders) SearchNumbers(ctx context.Context, req provider.SearchRequest) (*provider.SearchResponse, error) {
	f.searchCalls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.search == nil {
		return &provider.SearchResponse{Provider: "fake"}, nil
	}
	return f.search(ctx, req)
}

func (f *fakeProviders) lastRequest() provider.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return provider.SearchRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeProviders) NumberAvailability(ctx context.Context, phone string) (provider.Availability, error) {
	f.availCalls.Add(1)
	if f.avail == nil {
		return provider.Availability{Provider: "fake"}, nil
	}
	available, err := f.avail(ctx, phone)
	if err != nil {
		return provider.Availability{}, err
	}
	return provider.Availability{Available: available, Provider: "fake"}, nil
}

func (f *fakeProviders) Serves(country string, _ provider.Capability) bool {
	return f.serves == nil || f.serves(country)
}

func (f *fakeProviders) ReserveNumber(_ context.Context, req provider.ReserveRequest) (*provider.Reservation, error) {
	return &provider.Reservation{
		ReservationID: "res-1",
		PhoneNumber:   req.PhoneNumber,
		Provider:      req.Provider,
		ExpiresAt:     time.Date(2026, 1, 1, 12, 15, 0, 0, time.UTC),
	}, nil
}

func (f *fakeProviders) PurchaseNumber(_ context.Context, req provider.PurchaseRequest) (*provider.Purchase, error) {
	if req.ReservationID == "" {
		return nil, provider.ErrNotFound
	}
	return &provider.Purchase{
		PurchaseID:  "pur-1",
		PhoneNumber: req.PhoneNumber,
		Provider:    req.Provider,
		Status:      provider.PurchaseActive,
	}, nil
}

func (f *fakeProviders) PortNumber(_ context.Context, req provider.PortRequest) (*provider.PortResult, error) {
	return &provider.PortResult{
		PortingID:   "port-1",
		PhoneNumber: req.PhoneNumber,
		Provider:    req.Provider,
		Status:      provider.PortSubmitted,
	}, nil
}

func (f *fakeProviders) Metrics() []provider.ProviderMetrics {
	return []provider.ProviderMetrics{{Provider: "fake", Requests: int64(f.searchCalls.Load())}}
}

func (f *fakeProviders) Health() []provider.ProviderHealth {
	return []provider.ProviderHealth{{Provider: "fake", Healthy: true, Status: "healthy"}}
}

// offers returns a search func answering with numbers.
func offers(numbers ...provider.AvailableNumber) func(context.Context, provider.SearchRequest) (*provider.SearchResponse, error) {
	return func(context.Context, provider.SearchRequest) (*provider.SearchResponse, error) {
		return &provider.SearchResponse{
			Numbers:    numbers,
			TotalCount: len(numbers),
			SearchID:   "search-1",
			Provider:   "fake",
		}, nil
	}
}

func offer(phone string, monthly, setup int64, features ...provider.Feature) provider.AvailableNumber {
	area := ""
	if len(phone) >= 5 {
		area = phone[2:5]
	}
	return provider.AvailableNumber{
		PhoneNumber: phone,
		CountryCode: "US",
		AreaCode:    area,
		MonthlyRate: monthly,
		SetupFee:    setup,
		Currency:    "USD",
		Features:    features,
		Provider:    "fake",
	}
}

// noSleep records requested delays without waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *noSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *noSleep) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// brokenCache fails every operation.
type brokenCache struct {
	sets atomic.Int32
}

func (b *brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (b *brokenCache) Set(context.Context, string, []byte, time.Duration, ...string) error {
	b.sets.Add(1)
	return errors.New("cache down")
}

func (b *brokenCache) Delete(context.Context, string) error { return errors.New("cache down") }

func (b *brokenCache) InvalidateTag(context.Context, string) (int, error) {
	return 0, errors.New("cache down")
}

func ptr[T any](v T) *T { return &v }

// countingCache records reads on top of a working cache.
type countingCache struct {
	cache.Cache
	gets atomic.Int32
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets.Add(1)
	return c.Cache.Get(ctx, key)
}

// failingRepository rejects every write.
type failingRepository struct{}

func (failingRepository) FindByPhoneNumber(context.Context, string) (*store.NumberRecord, error) {
	return nil, nil
}

func (failingRepository) Save(context.Context, *store.NumberRecord) error {
	return errors.New("database down")
}
