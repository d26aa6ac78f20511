// Package periodlockhttp exposes the administrative REST surface for period
// lock transitions and status.
package periodlockhttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/evgarage-erp/evgarage-erp/internal/periodlock"
	"github.com/evgarage-erp/evgarage-erp/internal/platform/httpx"
	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// Handler wires HTTP endpoints onto the lock service.
type Handler struct {
	logger   *slog.Logger
	service  *periodlock.Service
	validate *validator.Validate
}

// NewHandler constructs a period lock HTTP handler.
func NewHandler(logger *slog.Logger, service *periodlock.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers routes under the supplied router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/fiscal-year/{year}/lock", h.lockFiscalYear)
		r.Route("/{period}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Post("/lock", h.lock)
			r.Post("/unlock", h.unlock)
			r.Post("/extend", h.extend)
			r.Get("/check", h.check)
		})
	})
}

type lockView struct {
	Period          string     `json:"period"`
	Status          string     `json:"status"`
	LockedBy        string     `json:"locked_by"`
	LockedAt        time.Time  `json:"locked_at"`
	LockReason      string     `json:"lock_reason"`
	UnlockedBy      *string    `json:"unlocked_by,omitempty"`
	UnlockedAt      *time.Time `json:"unlocked_at,omitempty"`
	UnlockReason    *string    `json:"unlock_reason,omitempty"`
	UnlockExpiresAt *time.Time `json:"unlock_expires_at,omitempty"`
	ExtensionCount  int        `json:"extension_count"`
}

func toView(l periodlock.Lock) lockView {
	return lockView{
		Period:          string(l.Period),
		Status:          string(l.Status),
		LockedBy:        l.LockedBy,
		LockedAt:        l.LockedAt,
		LockReason:      l.LockReason,
		UnlockedBy:      l.UnlockedBy,
		UnlockedAt:      l.UnlockedAt,
		UnlockReason:    l.UnlockReason,
		UnlockExpiresAt: l.UnlockExpiresAt,
		ExtensionCount:  l.ExtensionCount,
	}
}

func (h *Handler) requestScope(r *http.Request) (uuid.UUID, shared.Actor, error) {
	org, err := httpx.OrgFromRequest(r)
	if err != nil {
		return uuid.Nil, shared.Actor{}, err
	}
	actor, err := httpx.ActorFromRequest(r)
	if err != nil {
		return uuid.Nil, shared.Actor{}, err
	}
	return org, actor, nil
}

func periodParam(r *http.Request) (shared.Period, error) {
	return shared.ParsePeriod(chi.URLParam(r, "period"))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	org, _, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	locks, err := h.service.List(r.Context(), org)
	if err != nil {
		h.logger.Error("list period locks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]lockView, 0, len(locks))
	for _, l := range locks {
		views = append(views, toView(l))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"locks": views})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	org, _, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := periodParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lock, err := h.service.Get(r.Context(), org, period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(lock))
}

// check lets callers preflight a posting date: 204 when open, 423 when locked.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	org, _, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := periodParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Check(r.Context(), org, period.Start()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lockRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	org, actor, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := periodParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req lockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lock, err := h.service.Lock(r.Context(), periodlock.LockInput{OrgID: org, Period: period, Actor: actor, Reason: req.Reason})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(lock))
}

type unlockRequest struct {
	Reason      string `json:"reason" validate:"required,min=10"`
	WindowHours int    `json:"window_hours" validate:"omitempty,min=1,max=168"`
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	org, actor, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := periodParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req unlockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lock, err := h.service.Unlock(r.Context(), periodlock.UnlockInput{
		OrgID:       org,
		Period:      period,
		Actor:       actor,
		Reason:      req.Reason,
		WindowHours: req.WindowHours,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(lock))
}

type extendRequest struct {
	AdditionalHours int `json:"additional_hours" validate:"required,min=1,max=168"`
}

func (h *Handler) extend(w http.ResponseWriter, r *http.Request) {
	org, actor, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := periodParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req extendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lock, err := h.service.Extend(r.Context(), periodlock.ExtendInput{
		OrgID:           org,
		Period:          period,
		Actor:           actor,
		AdditionalHours: req.AdditionalHours,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(lock))
}

type fiscalYearResultView struct {
	Period string `json:"period"`
	Locked bool   `json:"locked"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) lockFiscalYear(w http.ResponseWriter, r *http.Request) {
	org, actor, err := h.requestScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be numeric")
		return
	}
	results, err := h.service.LockFiscalYear(r.Context(), periodlock.FiscalYearInput{OrgID: org, Year: year, Actor: actor})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]fiscalYearResultView, 0, len(results))
	for _, res := range results {
		views = append(views, fiscalYearResultView{Period: string(res.Period), Locked: res.Locked, Error: res.Error})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": views})
}
