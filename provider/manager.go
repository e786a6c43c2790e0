package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/resilience"
)

var errNoResult = errors.New("provider: adapter returned no result")

// Binding pairs a provider configuration with its adapter.
type Binding struct {
	Config  Config
	Adapter Adapter
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// ProbeInterval is the period of the background health probe.
	// Default: 1 minute
	ProbeInterval time.Duration

	// ProbeTimeout bounds one probe round across all providers.
	// Default: 10 seconds
	ProbeTimeout time.Duration

	// Logger receives failover and breaker events.
	// Default: observe.NopLogger()
	Logger observe.Logger

	// Middleware instruments every adapter call. Nil disables instrumentation.
	Middleware *observe.Middleware

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

// Manager is the single entry point to the configured providers. It hides
// how many providers exist and which of them are healthy.
//
// Contract:
//   - Concurrency: safe for concurrent use. Each provider's breaker and
//     counters are guarded by that provider's own lock.
//   - Ordering: providers are tried in ascending Priority; equal priorities
//     keep configuration order.
//   - Retries: none. A call makes at most one attempt per provider.
type Manager struct {
	config  ManagerConfig
	logger  observe.Logger
	members []*member
	byID    map[string]*member

	probeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a Manager over bindings.
func NewManager(config ManagerConfig, bindings ...Binding) (*Manager, error) {
	if config.ProbeInterval <= 0 {
		config.ProbeInterval = time.Minute
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	m := &Manager{
		config: config,
		logger: config.Logger,
		byID:   make(map[string]*member, len(bindings)),
	}

	for _, b := range bindings {
		if b.Adapter == nil {
			return nil, fmt.Errorf("%w: provider %q has no adapter", ErrInvalidConfig, b.Config.ID)
		}
		if b.Config.ID == "" {
			b.Config.ID = b.Adapter.ID()
		}
		if strings.TrimSpace(b.Config.ID) == "" {
			return nil, fmt.Errorf("%w: provider id is required", ErrInvalidConfig)
		}
		if _, dup := m.byID[b.Config.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate provider id %q", ErrInvalidConfig, b.Config.ID)
		}
		mem := newMember(b, config)
		m.members = append(m.members, mem)
		m.byID[b.Config.ID] = mem
	}

	slices.SortStableFunc(m.members, func(a, b *member) int {
		return a.config.Priority - b.config.Priority
	})

	return m, nil
}

// eligible returns enabled providers matching pred, in priority order.
func (m *Manager) eligible(pred func(Config) bool) []*member {
	out := make([]*member, 0, len(m.members))
	for _, mem := range m.members {
		if mem.config.Enabled && pred(mem.config) {
			out = append(out, mem)
		}
	}
	return out
}

// SearchNumbers asks eligible providers in priority order and returns the
// first successful answer. An empty list is a successful answer. Results
// are never merged across providers.
func (m *Manager) SearchNumbers(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	candidates := m.eligible(func(c Config) bool {
		return c.Supports(req.CountryCode, CapabilitySearch)
	})

	var attempts []Attempt
	for _, mem := range candidates {
		var resp *SearchResponse
		err := mem.call(ctx, "search", func(ctx context.Context) error {
			var err error
			resp, err = mem.adapter.SearchNumbers(ctx, req)
			return err
		})
		if err == nil {
			return stampProvider(resp, mem.id()), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		attempts = append(attempts, newAttempt(mem.id(), err))
		m.logger.Warn(ctx, "provider search failed, trying next",
			observe.F("provider", mem.id()),
			observe.F("country", req.CountryCode),
			observe.Err(err),
		)
	}

	return nil, m.unavailable(ctx, "search", attempts)
}

// stampProvider sets the answering provider on the response and on numbers
// that lack one. The adapter's slice is copied, not modified.
func stampProvider(resp *SearchResponse, id string) *SearchResponse {
	if resp == nil {
		return &SearchResponse{Provider: id}
	}
	out := *resp
	out.Provider = id
	out.Numbers = make([]AvailableNumber, len(resp.Numbers))
	for i, n := range resp.Numbers {
		if n.Provider == "" {
			n.Provider = id
		}
		out.Numbers[i] = n
	}
	if out.TotalCount < len(out.Numbers) {
		out.TotalCount = len(out.Numbers)
	}
	return &out
}

// Availability is the outcome of an availability pass.
type Availability struct {
	Available bool

	// Provider is the provider whose answer decided the pass. It is empty
	// when no provider answered.
	Provider string
}

// CheckNumberAvailability reports whether phoneNumber is free. See
// NumberAvailability.
func (m *Manager) CheckNumberAvailability(ctx context.Context, phoneNumber string) (bool, error) {
	a, err := m.NumberAvailability(ctx, phoneNumber)
	return a.Available, err
}

// NumberAvailability reports whether phoneNumber is free and which provider
// said so.
//
// Providers are tried in priority order. A failing provider is skipped. A
// definitive true stops the pass. A false stops the pass unless the calling
// code is shared by several countries, in which case another provider may
// own the number and the next one is asked. If at least one provider
// answered, the result is false; if none did, the error matches
// ErrAllProvidersUnavailable.
func (m *Manager) NumberAvailability(ctx context.Context, phoneNumber string) (Availability, error) {
	countries := CountriesForNumber(phoneNumber)
	ambiguous := len(countries) != 1

	candidates := m.eligible(func(c Config) bool {
		return c.SupportsAny(countries, CapabilityAvailability)
	})

	var (
		attempts []Attempt
		answer   Availability
	)
	for _, mem := range candidates {
		var available bool
		err := mem.call(ctx, "availability", func(ctx context.Context) error {
			var err error
			available, err = mem.adapter.CheckAvailability(ctx, phoneNumber)
			return err
		})
		switch {
		case err == nil:
		case errors.Is(err, ErrNotAvailable), errors.Is(err, ErrNotFound):
			available = false
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Availability{}, ctxErr
			}
			attempts = append(attempts, newAttempt(mem.id(), err))
			continue
		}

		answer = Availability{Available: available, Provider: mem.id()}
		if available || !ambiguous {
			return answer, nil
		}
	}

	if answer.Provider != "" {
		return answer, nil
	}
	return Availability{}, m.unavailable(ctx, "availability", attempts)
}

// Serves reports whether an enabled provider offers capability in country.
func (m *Manager) Serves(country string, capability Capability) bool {
	return len(m.eligible(func(c Config) bool {
		return c.Supports(country, capability)
	})) > 0
}

// ReserveNumber holds a number at the provider named in req. It never fails
// over to another provider.
func (m *Manager) ReserveNumber(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	mem, err := m.route(req.Provider, CapabilityReserve)
	if err != nil {
		return nil, err
	}

	var res *Reservation
	err = mem.call(ctx, "reserve", func(ctx context.Context) error {
		var err error
		res, err = mem.adapter.Reserve(ctx, req)
		if err == nil && res == nil {
			err = errNoResult
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Provider == "" {
		res.Provider = mem.id()
	}
	return res, nil
}

// PurchaseNumber completes a purchase at the provider that issued the
// reservation. It never fails over to another provider.
func (m *Manager) PurchaseNumber(ctx context.Context, req PurchaseRequest) (*Purchase, error) {
	mem, err := m.route(req.Provider, CapabilityPurchase)
	if err != nil {
		return nil, err
	}

	var p *Purchase
	err = mem.call(ctx, "purchase", func(ctx context.Context) error {
		var err error
		p, err = mem.adapter.Purchase(ctx, req)
		if err == nil && p == nil {
			err = errNoResult
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if p.Provider == "" {
		p.Provider = mem.id()
	}
	return p, nil
}

// PortNumber submits a port-in request to the provider named in req. It
// never fails over to another provider.
func (m *Manager) PortNumber(ctx context.Context, req PortRequest) (*PortResult, error) {
	mem, err := m.route(req.Provider, CapabilityPort)
	if err != nil {
		return nil, err
	}

	var r *PortResult
	err = mem.call(ctx, "port", func(ctx context.Context) error {
		var err error
		r, err = mem.adapter.Port(ctx, req)
		if err == nil && r == nil {
			err = errNoResult
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if r.Provider == "" {
		r.Provider = mem.id()
	}
	return r, nil
}

func (m *Manager) route(id string, capability Capability) (*member, error) {
	mem, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	if !mem.config.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrProviderDisabled, id)
	}
	if !mem.config.Supports("", capability) {
		return nil, fmt.Errorf("%w: %s does not offer %s", ErrUnsupported, id, capability)
	}
	return mem, nil
}

func newAttempt(id string, err error) Attempt {
	return Attempt{
		Provider: id,
		Skipped:  resilience.IsRejection(err),
		Err:      err,
	}
}

func (m *Manager) unavailable(ctx context.Context, op string, attempts []Attempt) error {
	err := &UnavailableError{Op: op, Attempts: attempts}
	if len(attempts) == 0 {
		m.logger.Warn(ctx, "no eligible provider",
			observe.F("operation", op),
		)
		return err
	}
	m.logger.Error(ctx, "all providers unavailable",
		observe.F("operation", op),
		observe.F("attempted", len(attempts)),
		observe.Err(err),
	)
	return err
}

// Providers returns the provider configurations in priority order.
func (m *Manager) Providers() []Config {
	out := make([]Config, len(m.members))
	for i, mem := range m.members {
		out[i] = mem.config
	}
	return out
}

// Metrics returns per-provider call counters in priority order.
func (m *Manager) Metrics() []ProviderMetrics {
	out := make([]ProviderMetrics, len(m.members))
	for i, mem := range m.members {
		out[i] = mem.metrics()
	}
	return out
}

// Health returns the latest probe outcome per provider in priority order.
func (m *Manager) Health() []ProviderHealth {
	out := make([]ProviderHealth, len(m.members))
	for i, mem := range m.members {
		out[i] = mem.health()
	}
	return out
}
