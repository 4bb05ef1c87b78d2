package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/pos"
	"github.com/tillpoint/tillpoint/internal/procurement"
	"github.com/tillpoint/tillpoint/internal/suppliers"
	"github.com/tillpoint/tillpoint/jobs"
)

// RouterParams collects the handlers mounted on the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Metrics            *observability.Metrics
	CatalogHandler     *catalog.Handler
	SuppliersHandler   *suppliers.Handler
	ProcurementHandler *procurement.Handler
	InventoryHandler   *inventory.Handler
	POSHandler         *pos.Handler
	JobHandler         *jobs.Handler
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.CatalogHandler != nil {
		r.Route("/catalog", params.CatalogHandler.MountRoutes)
	}
	if params.SuppliersHandler != nil {
		r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
	}
	if params.ProcurementHandler != nil {
		r.Route("/procurement", params.ProcurementHandler.MountRoutes)
	}
	if params.InventoryHandler != nil {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
	}
	if params.POSHandler != nil {
		r.Route("/pos", params.POSHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	return r
}
