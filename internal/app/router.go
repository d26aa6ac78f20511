package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/evgarage-erp/evgarage-erp/internal/audit/http"
	ledgerhttp "github.com/evgarage-erp/evgarage-erp/internal/ledger/http"
	"github.com/evgarage-erp/evgarage-erp/internal/observability"
	periodlockhttp "github.com/evgarage-erp/evgarage-erp/internal/periodlock/http"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	PeriodLockHandler *periodlockhttp.Handler
	LedgerHandler     *ledgerhttp.Handler
	AuditHandler      *audithttp.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router for the posting engine.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		params.PeriodLockHandler.MountRoutes(r)
		params.LedgerHandler.MountRoutes(r)
		params.AuditHandler.MountRoutes(r)
	})

	return r
}
