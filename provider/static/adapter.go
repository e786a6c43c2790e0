package static

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aks-o/voxlink-sub005/provider"
)

// Type is the registry type name of this adapter.
const Type = "static"

// DefaultHold is the reservation length used when a request sets none.
const DefaultHold = 15 * time.Minute

// FailureFunc decides whether an operation should fail. A nil return lets
// the call proceed.
type FailureFunc func(op string) error

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithFailure installs a failure hook evaluated at the start of every call.
func WithFailure(fn FailureFunc) Option {
	return func(a *Adapter) { a.fail = fn }
}

// WithLatency delays every call by d, honoring cancellation.
func WithLatency(d time.Duration) Option {
	return func(a *Adapter) { a.latency = d }
}

// Adapter serves a fixed inventory. Reserved and purchased numbers stop
// being offered; an expired reservation frees its number again.
type Adapter struct {
	id      string
	now     func() time.Time
	latency time.Duration

	mu        sync.Mutex
	fail      FailureFunc
	inventory []provider.AvailableNumber
	index     map[string]int
	held      map[string]hold // by phone number
	owned     map[string]string
}

type hold struct {
	reservationID string
	expiresAt     time.Time
}

var _ provider.Adapter = (*Adapter)(nil)

// New creates an Adapter named id over inventory.
func New(id string, inventory []provider.AvailableNumber, opts ...Option) *Adapter {
	a := &Adapter{
		id:        id,
		now:       time.Now,
		inventory: make([]provider.AvailableNumber, 0, len(inventory)),
		index:     make(map[string]int, len(inventory)),
		held:      make(map[string]hold),
		owned:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, n := range inventory {
		if _, dup := a.index[n.PhoneNumber]; dup {
			continue
		}
		n.Provider = id
		a.index[n.PhoneNumber] = len(a.inventory)
		a.inventory = append(a.inventory, n)
	}
	return a
}

// SetFailure replaces the failure hook. Nil clears it.
func (a *Adapter) SetFailure(fn FailureFunc) {
	a.mu.Lock()
	a.fail = fn
	a.mu.Unlock()
}

// ID returns the provider identifier.
func (a *Adapter) ID() string {
	return a.id
}

func (a *Adapter) begin(ctx context.Context, op string) error {
	if a.latency > 0 {
		timer := time.NewTimer(a.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	fail := a.fail
	a.mu.Unlock()
	if fail != nil {
		if err := fail(op); err != nil {
			return &provider.Error{Provider: a.id, Op: op, Err: err}
		}
	}
	return nil
}

// availableLocked reports whether phone is in the inventory and free.
func (a *Adapter) availableLocked(phone string) bool {
	if _, ok := a.index[phone]; !ok {
		return false
	}
	if _, ok := a.owned[phone]; ok {
		return false
	}
	h, ok := a.held[phone]
	if !ok {
		return true
	}
	if !a.now().Before(h.expiresAt) {
		delete(a.held, phone)
		return true
	}
	return false
}

// SearchNumbers lists free numbers matching req in inventory order.
// Pattern is matched as a literal substring of the number.
func (a *Adapter) SearchNumbers(ctx context.Context, req provider.SearchRequest) (*provider.SearchResponse, error) {
	if err := a.begin(ctx, "search"); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var matched []provider.AvailableNumber
	for _, n := range a.inventory {
		if !matches(n, req) || !a.availableLocked(n.PhoneNumber) {
			continue
		}
		matched = append(matched, n)
	}

	total := len(matched)
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}
	return &provider.SearchResponse{
		Numbers:    matched,
		TotalCount: total,
		SearchID:   uuid.NewString(),
	}, nil
}

func matches(n provider.AvailableNumber, req provider.SearchRequest) bool {
	if req.CountryCode != "" && !strings.EqualFold(n.CountryCode, req.CountryCode) {
		return false
	}
	if req.AreaCode != "" && n.AreaCode != req.AreaCode {
		return false
	}
	if req.City != "" && !strings.EqualFold(n.City, req.City) {
		return false
	}
	if req.Region != "" && !strings.EqualFold(n.Region, req.Region) {
		return false
	}
	if req.Pattern != "" && !strings.Contains(n.PhoneNumber, req.Pattern) {
		return false
	}
	for _, f := range req.Features {
		if !n.HasFeature(f) {
			return false
		}
	}
	return true
}

// CheckAvailability reports whether phoneNumber is in the inventory and free.
func (a *Adapter) CheckAvailability(ctx context.Context, phoneNumber string) (bool, error) {
	if err := a.begin(ctx, "availability"); err != nil {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.availableLocked(phoneNumber), nil
}

// Reserve holds a free number for req.Duration, or DefaultHold.
func (a *Adapter) Reserve(ctx context.Context, req provider.ReserveRequest) (*provider.Reservation, error) {
	if err := a.begin(ctx, "reserve"); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.availableLocked(req.PhoneNumber) {
		return nil, fmt.Errorf("%w: %s", provider.ErrNotAvailable, req.PhoneNumber)
	}

	duration := req.Duration
	if duration <= 0 {
		duration = DefaultHold
	}
	h := hold{
		reservationID: "res_" + uuid.NewString(),
		expiresAt:     a.now().Add(duration),
	}
	a.held[req.PhoneNumber] = h

	return &provider.Reservation{
		ReservationID: h.reservationID,
		PhoneNumber:   req.PhoneNumber,
		Provider:      a.id,
		ExpiresAt:     h.expiresAt,
	}, nil
}

// Purchase converts a live reservation into an owned number.
func (a *Adapter) Purchase(ctx context.Context, req provider.PurchaseRequest) (*provider.Purchase, error) {
	if err := a.begin(ctx, "purchase"); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	phone, h, ok := a.findHoldLocked(req.ReservationID)
	if !ok {
		return nil, fmt.Errorf("%w: reservation %s", provider.ErrNotFound, req.ReservationID)
	}
	now := a.now()
	if !now.Before(h.expiresAt) {
		delete(a.held, phone)
		return nil, fmt.Errorf("%w: reservation %s expired", provider.ErrNotAvailable, req.ReservationID)
	}

	delete(a.held, phone)
	purchaseID := "pur_" + uuid.NewString()
	a.owned[phone] = purchaseID

	return &provider.Purchase{
		PurchaseID:     purchaseID,
		PhoneNumber:    phone,
		Provider:       a.id,
		Status:         provider.PurchaseActive,
		ActivationDate: &now,
	}, nil
}

func (a *Adapter) findHoldLocked(reservationID string) (string, hold, bool) {
	for phone, h := range a.held {
		if h.reservationID == reservationID {
			return phone, h, true
		}
	}
	return "", hold{}, false
}

var e164 = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// Port accepts a port-in request. Requests without an account number or
// with a malformed number are rejected, not failed.
func (a *Adapter) Port(ctx context.Context, req provider.PortRequest) (*provider.PortResult, error) {
	if err := a.begin(ctx, "port"); err != nil {
		return nil, err
	}

	result := provider.PortResult{
		PortingID:   "port_" + uuid.NewString(),
		PhoneNumber: req.PhoneNumber,
		Provider:    a.id,
		Status:      provider.PortSubmitted,
	}
	switch {
	case !e164.MatchString(req.PhoneNumber):
		result.Status = provider.PortRejected
		result.RejectionReason = "phone number is not in E.164 format"
	case strings.TrimSpace(req.AccountNumber) == "":
		result.Status = provider.PortRejected
		result.RejectionReason = "account number is required"
	default:
		eta := a.now().Add(7 * 24 * time.Hour)
		if req.RequestedDate != nil && req.RequestedDate.After(eta) {
			eta = *req.RequestedDate
		}
		result.EstimatedCompletion = &eta
	}
	return &result, nil
}

// Ping fails only through the failure hook.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.begin(ctx, "ping")
}

// Factory builds an Adapter from cfg. Options["inventory_file"] names a YAML
// inventory; without it a demo inventory is generated for cfg.Regions.
func Factory(cfg provider.Config) (provider.Adapter, error) {
	inventory := DefaultInventory(cfg.Regions)
	if path := cfg.Options["inventory_file"]; path != "" {
		var err error
		inventory, err = LoadInventory(path)
		if err != nil {
			return nil, err
		}
	}

	var opts []Option
	if v := cfg.Options["latency"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: latency: %v", provider.ErrInvalidConfig, cfg.ID, err)
		}
		opts = append(opts, WithLatency(d))
	}
	return New(cfg.ID, inventory, opts...), nil
}

// Register adds the static adapter factory to r.
func Register(r *provider.Registry) error {
	return r.Register(Type, Factory)
}
