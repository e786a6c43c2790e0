package cache

import "time"

// Policy configures TTL selection for one class of cached lookups.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// SearchPolicy returns the default policy for search result lists.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour
func SearchPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     time.Hour,
	}
}

// DetailPolicy returns the default policy for single-number lookups.
// DefaultTTL: 15 minutes, MaxTTL: 1 hour
func DetailPolicy() Policy {
	return Policy{
		DefaultTTL: 15 * time.Minute,
		MaxTTL:     time.Hour,
	}
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
