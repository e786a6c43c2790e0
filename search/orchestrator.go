package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/aks-o/voxlink-sub005/cache"
	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/provider"
	"github.com/aks-o/voxlink-sub005/resilience"
)

// Providers is the provider-facing surface the Orchestrator needs.
// *provider.Manager implements it.
type Providers interface {
	SearchNumbers(ctx context.Context, req provider.SearchRequest) (*provider.SearchResponse, error)
	NumberAvailability(ctx context.Context, phoneNumber string) (provider.Availability, error)
	Serves(country string, capability provider.Capability) bool
	ReserveNumber(ctx context.Context, req provider.ReserveRequest) (*provider.Reservation, error)
	PurchaseNumber(ctx context.Context, req provider.PurchaseRequest) (*provider.Purchase, error)
	PortNumber(ctx context.Context, req provider.PortRequest) (*provider.PortResult, error)
	Metrics() []provider.ProviderMetrics
	Health() []provider.ProviderHealth
}

var _ Providers = (*provider.Manager)(nil)

// Result is a ranked, filtered search answer. A cached Result is returned
// exactly as it was stored.
type Result struct {
	Numbers []provider.AvailableNumber `json:"numbers"`

	// TotalCount is the provider's count of matches before local filtering.
	TotalCount int `json:"total_count"`

	Provider    string    `json:"provider"`
	SearchID    string    `json:"search_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Cache tag names.
const (
	tagSearchResults = "search_results"
	tagDetails       = "number_details"
)

func countryTag(country string) string {
	return cache.Tag("country", strings.ToUpper(country))
}

func areaTag(area string) string {
	if area == "" {
		area = anyValue
	}
	return cache.Tag("area", area)
}

// Orchestrator serves number searches and lookups.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Validation: invalid criteria fail with ErrInvalidCriteria before any
//     cache or provider access.
//   - Caching: cache failures are logged and never fail a call.
type Orchestrator struct {
	config    Config
	providers Providers
	cache     cache.Cache
	searches  *cache.Loader[*Result]
	details   *cache.Loader[*provider.AvailableNumber]
	retry     *resilience.Retry
	tracer    trace.Tracer
	logger    observe.Logger
}

// NewOrchestrator creates an Orchestrator. A nil c disables caching.
func NewOrchestrator(providers Providers, c cache.Cache, config Config) (*Orchestrator, error) {
	if providers == nil {
		return nil, errors.New("search: providers are required")
	}
	config.applyDefaults()

	o := &Orchestrator{
		config:    config,
		providers: providers,
		cache:     c,
		tracer:    config.Tracer,
		logger:    config.Logger,
	}
	if o.tracer == nil {
		o.tracer = tracenoop.NewTracerProvider().Tracer("search")
	}

	loaderCfg := cache.LoaderConfig{Codec: config.Codec, OnError: o.cacheError}
	o.searches = cache.NewLoader[*Result](c, loaderCfg)
	o.details = cache.NewLoader[*provider.AvailableNumber](c, loaderCfg)

	o.retry = resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  config.Retry.MaxAttempts,
		InitialDelay: config.Retry.BaseDelay,
		MaxDelay:     config.Retry.MaxDelay,
		Multiplier:   2,
		Jitter:       config.Retry.Jitter,
		RetryIf:      provider.IsRetryable,
		Sleep:        config.Sleep,
		Rand:         config.Rand,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			o.logger.Warn(context.Background(), "search attempt failed, retrying",
				observe.F("attempt", attempt),
				observe.F("delay", delay.String()),
				observe.Err(err),
			)
		},
	})

	return o, nil
}

func (o *Orchestrator) cacheError(ctx context.Context, op, key string, err error) {
	o.logger.Warn(ctx, "cache operation failed",
		observe.F("op", op),
		observe.F("key", key),
		observe.Err(err),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SearchNumbers returns numbers matching criteria. A cache hit returns the
// stored Result without re-ranking or re-filtering. On a miss the provider
// manager is retried with backoff; when the budget is spent the error
// matches ErrSearchFailed.
func (o *Orchestrator) SearchNumbers(ctx context.Context, criteria Criteria) (result *Result, err error) {
	ctx, span := o.tracer.Start(ctx, "search.numbers", trace.WithAttributes(
		attribute.String("search.country", criteria.CountryCode),
		attribute.String("search.area_code", criteria.AreaCode),
	))
	defer func() { endSpan(span, err) }()

	n, err := criteria.normalize(o.config)
	if err != nil {
		return nil, err
	}

	key, err := o.config.Keyer.Key("search", n.keyInput())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}

	entry := cache.Entry{Key: key, TTL: o.config.SearchTTL, Tags: n.tags()}
	result, hit, err := o.searches.Load(ctx, entry, func(ctx context.Context) (*Result, bool, error) {
		r, err := o.search(ctx, n)
		return r, err == nil, err
	})
	o.config.Metrics.RecordCacheLookup(ctx, "search", hit)
	span.SetAttributes(attribute.Bool("search.cache_hit", hit))
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("search.results", len(result.Numbers)))
	return result, nil
}

func (o *Orchestrator) search(ctx context.Context, n normalized) (*Result, error) {
	req := n.request(o.config.MaxLimit)

	var resp *provider.SearchResponse
	err := o.retry.Execute(ctx, func(ctx context.Context) error {
		var err error
		resp, err = o.providers.SearchNumbers(ctx, req)
		return err
	})
	if err != nil {
		o.logger.Error(ctx, "number search failed",
			observe.F("country", n.CountryCode),
			observe.F("area_code", n.AreaCode),
			observe.Err(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	numbers := filter(rank(resp.Numbers, n.Preferences), n)
	return &Result{
		Numbers:     numbers,
		TotalCount:  resp.TotalCount,
		Provider:    resp.Provider,
		SearchID:    resp.SearchID,
		GeneratedAt: o.config.Now(),
	}, nil
}

func detailKey(phoneNumber string) string {
	return "detail:" + phoneNumber
}

// GetNumberDetails returns the offer for phoneNumber, or nil when the
// providers report it unavailable. Negative answers are not cached.
func (o *Orchestrator) GetNumberDetails(ctx context.Context, phoneNumber string) (number *provider.AvailableNumber, err error) {
	ctx, span := o.tracer.Start(ctx, "search.number_details", trace.WithAttributes(
		attribute.String("search.phone_number", phoneNumber),
	))
	defer func() { endSpan(span, err) }()

	phoneNumber = strings.TrimSpace(phoneNumber)
	if !e164.MatchString(phoneNumber) {
		return nil, invalid("phone number %q is not E.164", phoneNumber)
	}

	countries := provider.CountriesForNumber(phoneNumber)
	tags := []string{tagDetails}
	if len(countries) == 1 {
		tags = append(tags, countryTag(countries[0]))
	}

	entry := cache.Entry{Key: detailKey(phoneNumber), TTL: o.config.DetailTTL, Tags: tags}
	number, hit, err := o.details.Load(ctx, entry, func(ctx context.Context) (*provider.AvailableNumber, bool, error) {
		return o.lookup(ctx, phoneNumber, countries)
	})
	o.config.Metrics.RecordCacheLookup(ctx, "detail", hit)
	span.SetAttributes(attribute.Bool("search.cache_hit", hit))
	return number, err
}

// lookup confirms availability, then looks for the full offer in a search
// scoped to the number. Only countries some provider can search are asked.
// A number the search cannot describe is returned with what the dialing
// code and the confirming provider reveal, and is not cached.
func (o *Orchestrator) lookup(ctx context.Context, phoneNumber string, countries []string) (*provider.AvailableNumber, bool, error) {
	availability, err := o.providers.NumberAvailability(ctx, phoneNumber)
	if err != nil {
		return nil, false, err
	}
	if !availability.Available {
		return nil, false, nil
	}

	for _, country := range countries {
		if !o.providers.Serves(country, provider.CapabilitySearch) {
			continue
		}
		resp, err := o.providers.SearchNumbers(ctx, provider.SearchRequest{
			CountryCode: country,
			Pattern:     strings.TrimPrefix(phoneNumber, "+"),
			Limit:       o.config.MaxLimit,
		})
		if err != nil {
			o.logger.Warn(ctx, "detail search failed",
				observe.F("phone_number", phoneNumber),
				observe.F("country", country),
				observe.Err(err),
			)
			continue
		}
		for _, n := range resp.Numbers {
			if n.PhoneNumber == phoneNumber {
				found := n
				return &found, true, nil
			}
		}
	}

	partial := &provider.AvailableNumber{
		PhoneNumber: phoneNumber,
		Provider:    availability.Provider,
	}
	if len(countries) == 1 {
		partial.CountryCode = countries[0]
	}
	return partial, false, nil
}
