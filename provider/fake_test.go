package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var errVendorDown = errors.New("vendor down")

type fakeAdapter struct {
	id string

	search  func(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	avail   func(ctx context.Context, phone string) (bool, error)
	reserve func(ctx context.Context, req ReserveRequest) (*Reservation, error)
	ping    func(ctx context.Context) error

	searchCalls  atomic.Int32
	availCalls   atomic.Int32
	reserveCalls atomic.Int32
	pingCalls    atomic.Int32
}

var _ Adapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) SearchNumbers(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	f.searchCalls.Add(1)
	if f.search == nil {
		return &SearchResponse{}, nil
	}
	return f.search(ctx, req)
}

func (f *fakeAdapter) CheckAvailability(ctx context.Context, phone string) (bool, error) {
	f.availCalls.Add(1)
	if f.avail == nil {
		return false, nil
	}
	return f.avail(ctx, phone)
}

func (f *fakeAdapter) Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	f.reserveCalls.Add(1)
	if f.reserve == nil {
		return &Reservation{ReservationID: "res-" + f.id, PhoneNumber: req.PhoneNumber}, nil
	}
	return f.reserve(ctx, req)
}

func (f *fakeAdapter) Purchase(_ context.Context, req PurchaseRequest) (*Purchase, error) {
	return &Purchase{PurchaseID: "pur-" + f.id, PhoneNumber: req.PhoneNumber, Status: PurchaseActive}, nil
}

func (f *fakeAdapter) Port(_ context.Context, req PortRequest) (*PortResult, error) {
	return &PortResult{PortingID: "port-" + f.id, PhoneNumber: req.PhoneNumber, Status: PortSubmitted}, nil
}

func (f *fakeAdapter) Ping(ctx context.Context) error {
	f.pingCalls.Add(1)
	if f.ping == nil {
		return nil
	}
	return f.ping(ctx)
}

func failingSearch(context.Context, SearchRequest) (*SearchResponse, error) {
	return nil, errVendorDown
}

func numbersFrom(phones ...string) func(context.Context, SearchRequest) (*SearchResponse, error) {
	return func(_ context.Context, req SearchRequest) (*SearchResponse, error) {
		resp := &SearchResponse{SearchID: "s1", TotalCount: len(phones)}
		for _, p := range phones {
			resp.Numbers = append(resp.Numbers, AvailableNumber{PhoneNumber: p, CountryCode: req.CountryCode})
		}
		return resp, nil
	}
}

func binding(a *fakeAdapter, priority int, mutate ...func(*Config)) Binding {
	cfg := Config{ID: a.id, Type: "fake", Priority: priority, Enabled: true}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return Binding{Config: cfg, Adapter: a}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
