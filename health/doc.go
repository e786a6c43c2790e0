// Package health provides the health checking primitives behind provider
// probes and the operator endpoints.
//
// A Checker reports a Result with a Status of Healthy, Degraded or Unhealthy.
// An Aggregator runs a set of checkers concurrently under one deadline and
// folds their results into an overall status:
//
//	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 5 * time.Second})
//	agg.Register("twilio", health.NewPingChecker("twilio", adapter.Ping))
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// The HTTP handlers expose liveness, readiness and detailed status:
//
//	health.RegisterHandlers(mux, agg)
package health
