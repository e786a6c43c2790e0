package search

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/aks-o/voxlink-sub005/observe"
)

// CheckBulkAvailability reports availability for every distinct number in
// phoneNumbers. Numbers are checked in chunks of BulkConcurrency; a chunk
// runs fully in parallel and the next chunk starts only when it is done.
// A malformed number, a failed check, or one skipped because ctx ended
// reports false, so the result always holds exactly one entry per distinct
// input.
func (o *Orchestrator) CheckBulkAvailability(ctx context.Context, phoneNumbers []string) map[string]bool {
	ctx, span := o.tracer.Start(ctx, "search.bulk_availability", trace.WithAttributes(
		attribute.Int("search.numbers", len(phoneNumbers)),
	))
	defer span.End()

	result := make(map[string]bool, len(phoneNumbers))
	unique := make([]string, 0, len(phoneNumbers))
	for _, p := range phoneNumbers {
		if _, seen := result[p]; seen {
			continue
		}
		result[p] = false
		if e164.MatchString(p) {
			unique = append(unique, p)
		}
	}

	var mu sync.Mutex
	size := o.config.BulkConcurrency
	for start := 0; start < len(unique); start += size {
		if ctx.Err() != nil {
			break
		}
		chunk := unique[start:min(start+size, len(unique))]

		var g errgroup.Group
		for _, phone := range chunk {
			g.Go(func() error {
				availability, err := o.providers.NumberAvailability(ctx, phone)
				if err != nil {
					o.logger.Warn(ctx, "availability check failed",
						observe.F("phone_number", phone),
						observe.Err(err),
					)
					return nil
				}
				if availability.Available {
					mu.Lock()
					result[phone] = true
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return result
}
