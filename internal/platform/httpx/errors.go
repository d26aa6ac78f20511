// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// periodLockedProblem extends the problem detail with the structured fields
// the caller needs to offer "unlock or choose another date".
type periodLockedProblem struct {
	ProblemDetail
	Period   string    `json:"period"`
	LockedBy string    `json:"locked_by"`
	LockedAt time.Time `json:"locked_at"`
}

// RespondError maps the domain error taxonomy to HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	if ple, ok := shared.AsPeriodLocked(err); ok {
		JSON(w, http.StatusLocked, periodLockedProblem{
			ProblemDetail: ProblemDetail{Title: "Period Locked", Status: http.StatusLocked, Detail: ple.Error()},
			Period:        string(ple.Period),
			LockedBy:      ple.LockedBy,
			LockedAt:      ple.LockedAt,
		})
		return
	}
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrPostingFailed):
		Problem(w, http.StatusInternalServerError, "Posting Failed", "journal posting failed; the failure has been logged for reconciliation")
	default:
		// Includes ErrUnbalancedEntry: invariant violations are logged
		// server-side, never detailed to end users.
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
