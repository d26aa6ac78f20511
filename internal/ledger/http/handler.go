// Package ledgerhttp exposes journal posting, reversal and lookup endpoints.
package ledgerhttp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/evgarage-erp/evgarage-erp/internal/ledger"
	"github.com/evgarage-erp/evgarage-erp/internal/platform/httpx"
	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// Handler wires HTTP endpoints onto the posting service.
type Handler struct {
	logger   *slog.Logger
	service  *ledger.Service
	validate *validator.Validate
}

// NewHandler constructs a ledger HTTP handler.
func NewHandler(logger *slog.Logger, service *ledger.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers routes under the supplied router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/journal", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/post", h.post)
		r.Get("/{id}", h.get)
		r.Post("/{id}/reverse", h.reverse)
	})
}

type lineView struct {
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
}

type entryView struct {
	ID         int64      `json:"id"`
	Date       time.Time  `json:"date"`
	SourceType string     `json:"source_type"`
	SourceID   string     `json:"source_id"`
	CreatedBy  string     `json:"created_by"`
	ReversalOf *int64     `json:"reversal_of,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Lines      []lineView `json:"lines"`
}

func toView(e ledger.JournalEntry) entryView {
	lines := make([]lineView, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, lineView{
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Debit:       l.Debit.StringFixed(2),
			Credit:      l.Credit.StringFixed(2),
		})
	}
	return entryView{
		ID:         e.ID,
		Date:       e.Date,
		SourceType: e.SourceType,
		SourceID:   e.SourceID,
		CreatedBy:  e.CreatedBy,
		ReversalOf: e.ReversalOf,
		CreatedAt:  e.CreatedAt,
		Lines:      lines,
	}
}

type postRequest struct {
	Kind     string          `json:"kind" validate:"required"`
	Date     string          `json:"date" validate:"required"`
	SourceID string          `json:"source_id" validate:"required"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
}

type invoicePayload struct {
	Taxable decimal.Decimal `json:"taxable"`
	CGST    decimal.Decimal `json:"cgst"`
	SGST    decimal.Decimal `json:"sgst"`
	IGST    decimal.Decimal `json:"igst"`
}

type paymentPayload struct {
	Amount     decimal.Decimal `json:"amount"`
	Instrument string          `json:"instrument"`
}

type billPayload struct {
	ExpenseAccountCode string          `json:"expense_account_code"`
	ExpenseAccountName string          `json:"expense_account_name"`
	Taxable            decimal.Decimal `json:"taxable"`
	CGST               decimal.Decimal `json:"cgst"`
	SGST               decimal.Decimal `json:"sgst"`
	IGST               decimal.Decimal `json:"igst"`
}

type expensePayload struct {
	Amount             decimal.Decimal `json:"amount"`
	ExpenseAccountCode string          `json:"expense_account_code"`
	ExpenseAccountName string          `json:"expense_account_name"`
	OnCredit           bool            `json:"on_credit"`
	Instrument         string          `json:"instrument"`
}

type payrollPayload struct {
	GrossSalary     decimal.Decimal `json:"gross_salary"`
	EmployerPF      decimal.Decimal `json:"employer_pf"`
	EmployerESI     decimal.Decimal `json:"employer_esi"`
	TDS             decimal.Decimal `json:"tds"`
	EmployeePF      decimal.Decimal `json:"employee_pf"`
	EmployeeESI     decimal.Decimal `json:"employee_esi"`
	ProfessionalTax decimal.Decimal `json:"professional_tax"`
}

// buildEvent decodes the kind-specific payload into its posting event.
func buildEvent(req postRequest, header ledger.Header) (ledger.PostingEvent, error) {
	switch req.Kind {
	case ledger.KindInvoice:
		var p invoicePayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: invoice payload: %v", shared.ErrValidation, err)
		}
		return ledger.InvoicePosting{Header: header, Taxable: p.Taxable, CGST: p.CGST, SGST: p.SGST, IGST: p.IGST}, nil
	case ledger.KindPayment:
		var p paymentPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: payment payload: %v", shared.ErrValidation, err)
		}
		return ledger.PaymentPosting{Header: header, Amount: p.Amount, Instrument: ledger.Instrument(p.Instrument)}, nil
	case ledger.KindBill:
		var p billPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: bill payload: %v", shared.ErrValidation, err)
		}
		return ledger.BillPosting{
			Header:         header,
			ExpenseAccount: ledger.Account{Code: p.ExpenseAccountCode, Name: p.ExpenseAccountName},
			Taxable:        p.Taxable,
			CGST:           p.CGST,
			SGST:           p.SGST,
			IGST:           p.IGST,
		}, nil
	case ledger.KindBillPayment:
		var p paymentPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: bill payment payload: %v", shared.ErrValidation, err)
		}
		return ledger.BillPaymentPosting{Header: header, Amount: p.Amount, Instrument: ledger.Instrument(p.Instrument)}, nil
	case ledger.KindExpense:
		var p expensePayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: expense payload: %v", shared.ErrValidation, err)
		}
		return ledger.ExpensePosting{
			Header:         header,
			Amount:         p.Amount,
			ExpenseAccount: ledger.Account{Code: p.ExpenseAccountCode, Name: p.ExpenseAccountName},
			OnCredit:       p.OnCredit,
			Instrument:     ledger.Instrument(p.Instrument),
		}, nil
	case ledger.KindPayroll:
		var p payrollPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: payroll payload: %v", shared.ErrValidation, err)
		}
		return ledger.PayrollPosting{
			Header:          header,
			GrossSalary:     p.GrossSalary,
			EmployerPF:      p.EmployerPF,
			EmployerESI:     p.EmployerESI,
			TDS:             p.TDS,
			EmployeePF:      p.EmployeePF,
			EmployeeESI:     p.EmployeeESI,
			ProfessionalTax: p.ProfessionalTax,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown posting kind %q", shared.ErrValidation, req.Kind)
	}
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	org, err := httpx.OrgFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, err := httpx.ActorFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := shared.ParsePostingDate(req.Date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	event, err := buildEvent(req, ledger.Header{OrgID: org, Date: date, SourceID: req.SourceID, ActorID: actor.UserID})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Post(r.Context(), event, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(entry))
}

type reverseRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	org, err := httpx.OrgFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, err := httpx.ActorFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entry id must be numeric")
		return
	}
	var req reverseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var date time.Time
	if req.Date != "" {
		if date, err = shared.ParsePostingDate(req.Date); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	entry, err := h.service.Reverse(r.Context(), ledger.ReverseInput{
		OrgID:   org,
		EntryID: id,
		Date:    date,
		Reason:  req.Reason,
		Actor:   actor,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(entry))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	org, err := httpx.OrgFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entry id must be numeric")
		return
	}
	entry, err := h.service.GetByID(r.Context(), org, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(entry))
}

// list returns entries for the org; with source_type and source_id query
// params it resolves the single entry posted for that document.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	org, err := httpx.OrgFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	if st, sid := q.Get("source_type"), q.Get("source_id"); st != "" || sid != "" {
		if st == "" || sid == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "source_type and source_id must be supplied together")
			return
		}
		entry, err := h.service.GetBySource(r.Context(), org, st, sid)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, toView(entry))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	entries, err := h.service.List(r.Context(), org, limit, offset)
	if err != nil {
		h.logger.Error("list journal entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toView(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": views})
}
