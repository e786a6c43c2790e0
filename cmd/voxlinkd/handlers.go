package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aks-o/voxlink-sub005/auth"
	"github.com/aks-o/voxlink-sub005/health"
	"github.com/aks-o/voxlink-sub005/observe"
)

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, a.health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))

	viewer, admin := a.guard(auth.RoleViewer), a.guard(auth.RoleAdmin)
	mux.Handle("GET /providers", viewer(http.HandlerFunc(a.handleProviders)))
	mux.Handle("POST /cache/invalidate", admin(http.HandlerFunc(a.handleInvalidate)))
	return mux
}

// guard protects operator routes. Without configured credentials the
// routes are served open.
func (a *app) guard(roles ...string) func(http.Handler) http.Handler {
	if a.authn == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.Require(a.authn, a.logger, roles...)
}

func (a *app) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.GetProviderStatus())
}

// handleInvalidate drops cached entries by tag, country or area code. With
// no selector it drops every search result and number detail.
func (a *app) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		removed int
		err     error
		scope   string
	)
	switch {
	case q.Has("tag"):
		scope = "tag"
		tag := strings.TrimSpace(q.Get("tag"))
		if tag == "" {
			http.Error(w, "empty tag", http.StatusBadRequest)
			return
		}
		removed, err = a.orch.InvalidateTag(ctx, tag)
	case q.Has("country"):
		scope = "country"
		removed, err = a.orch.InvalidateCountry(ctx, q.Get("country"))
	case q.Has("area"):
		scope = "area"
		removed, err = a.orch.InvalidateArea(ctx, q.Get("area"))
	default:
		scope = "all"
		removed, err = a.orch.InvalidateAll(ctx)
	}
	if err != nil {
		a.logger.Error(ctx, "cache invalidation failed", observe.F("scope", scope), observe.Err(err))
		http.Error(w, "invalidation failed", http.StatusInternalServerError)
		return
	}

	a.logger.Info(ctx, "cache invalidated",
		observe.F("scope", scope),
		observe.F("removed", removed),
		observe.F("principal", auth.PrincipalFromContext(ctx)),
	)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
