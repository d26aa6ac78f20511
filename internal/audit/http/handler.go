// Package audithttp exposes the audit timeline for the admin surface.
package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/evgarage-erp/evgarage-erp/internal/audit"
	"github.com/evgarage-erp/evgarage-erp/internal/platform/httpx"
)

// Handler serves read-only audit queries.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
}

// NewHandler constructs an audit HTTP handler.
func NewHandler(logger *slog.Logger, service *audit.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes under the supplied router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	org, err := httpx.OrgFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	result, err := h.service.Timeline(r.Context(), audit.Filter{
		OrgID:        org,
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Action:       q.Get("action"),
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rows":     result.Rows,
		"page":     result.Page,
		"has_next": result.HasNext,
	})
}
