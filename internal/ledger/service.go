package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evgarage-erp/evgarage-erp/internal/audit"
	"github.com/evgarage-erp/evgarage-erp/internal/shared"
	"github.com/evgarage-erp/evgarage-erp/internal/tax"
)

// PeriodGuard is the posting gate's view of the period lock store.
type PeriodGuard interface {
	Check(ctx context.Context, org uuid.UUID, date time.Time) error
}

// GuardFunc adapts a plain check function to PeriodGuard.
type GuardFunc func(ctx context.Context, org uuid.UUID, date time.Time) error

func (f GuardFunc) Check(ctx context.Context, org uuid.UUID, date time.Time) error {
	return f(ctx, org, date)
}

// GateMetrics counts postings rejected by the period gate.
type GateMetrics interface {
	PostingBlocked()
}

// Service is the journal entry poster. Every Post call runs the period gate
// first; on a locked period nothing is written and the error propagates.
type Service struct {
	repo    Repository
	guard   PeriodGuard
	audit   audit.Recorder
	logger  *slog.Logger
	metrics GateMetrics
	now     func() time.Time
}

// NewService constructs the poster. recorder and metrics may be nil.
func NewService(repo Repository, guard PeriodGuard, recorder audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, guard: guard, audit: recorder, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches gate metrics.
func (s *Service) WithMetrics(m GateMetrics) {
	s.metrics = m
}

// Post converts the event into a balanced journal entry and persists it.
// A duplicate post for the same source document returns the stored entry
// unchanged, so retries are safe.
func (s *Service) Post(ctx context.Context, ev PostingEvent, actor shared.Actor) (JournalEntry, error) {
	h := ev.header()
	if h.OrgID == uuid.Nil {
		return JournalEntry{}, fmt.Errorf("%w: organization required", shared.ErrValidation)
	}
	if h.Date.IsZero() {
		return JournalEntry{}, fmt.Errorf("%w: effective date required", shared.ErrValidation)
	}
	if strings.TrimSpace(h.SourceID) == "" {
		return JournalEntry{}, fmt.Errorf("%w: source document id required", shared.ErrValidation)
	}
	ev, err := normalizeEvent(ev)
	if err != nil {
		return JournalEntry{}, err
	}

	if err := s.guard.Check(ctx, h.OrgID, h.Date); err != nil {
		if _, locked := shared.AsPeriodLocked(err); locked && s.metrics != nil {
			s.metrics.PostingBlocked()
		}
		return JournalEntry{}, err
	}

	lines, err := buildLines(ev)
	if err != nil {
		return JournalEntry{}, err
	}
	lines = normalize(lines)
	if err := validateLines(lines); err != nil {
		// A mapping bug, not caller error. Log the full detail; the caller
		// sees only the generic sentinel.
		s.logger.Error("journal entry invariant violation",
			slog.String("kind", ev.Kind()),
			slog.String("source_id", h.SourceID),
			slog.Any("error", err))
		return JournalEntry{}, shared.ErrUnbalancedEntry
	}

	entry := JournalEntry{
		OrgID:      h.OrgID,
		Date:       h.Date.UTC(),
		Lines:      lines,
		SourceType: ev.Kind(),
		SourceID:   h.SourceID,
		CreatedBy:  h.ActorID,
	}
	return s.persist(ctx, entry, actor)
}

// ReverseInput carries parameters for Reverse.
type ReverseInput struct {
	OrgID   uuid.UUID
	EntryID int64
	Date    time.Time
	Reason  string
	Actor   shared.Actor
}

// Reverse creates a new entry with every original line's debit and credit
// swapped, tagged with reversal_of. The original entry is never touched.
func (s *Service) Reverse(ctx context.Context, in ReverseInput) (JournalEntry, error) {
	if in.EntryID == 0 {
		return JournalEntry{}, fmt.Errorf("%w: entry id required", shared.ErrValidation)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return JournalEntry{}, fmt.Errorf("%w: reversal reason required", shared.ErrValidation)
	}
	original, err := s.repo.GetByID(ctx, in.OrgID, in.EntryID)
	if err != nil {
		return JournalEntry{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	if err := s.guard.Check(ctx, in.OrgID, date); err != nil {
		if _, locked := shared.AsPeriodLocked(err); locked && s.metrics != nil {
			s.metrics.PostingBlocked()
		}
		return JournalEntry{}, err
	}

	swapped := make([]Line, len(original.Lines))
	for i, line := range original.Lines {
		swapped[i] = Line{
			AccountCode: line.AccountCode,
			AccountName: line.AccountName,
			Debit:       line.Credit,
			Credit:      line.Debit,
		}
	}
	entryID := in.EntryID
	reversal := JournalEntry{
		OrgID:      in.OrgID,
		Date:       date.UTC(),
		Lines:      swapped,
		SourceType: KindReversal,
		SourceID:   strconv.FormatInt(in.EntryID, 10),
		CreatedBy:  in.Actor.UserID,
		ReversalOf: &entryID,
	}
	return s.persist(ctx, reversal, in.Actor)
}

// GetByID returns one entry with its lines.
func (s *Service) GetByID(ctx context.Context, org uuid.UUID, id int64) (JournalEntry, error) {
	return s.repo.GetByID(ctx, org, id)
}

// GetBySource returns the entry posted for a source document, if any.
func (s *Service) GetBySource(ctx context.Context, org uuid.UUID, sourceType, sourceID string) (JournalEntry, error) {
	return s.repo.GetBySource(ctx, org, sourceType, sourceID)
}

// List returns entries for the org, newest first.
func (s *Service) List(ctx context.Context, org uuid.UUID, limit, offset int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, org, limit, offset)
}

func (s *Service) persist(ctx context.Context, entry JournalEntry, actor shared.Actor) (JournalEntry, error) {
	stored, err := s.repo.Insert(ctx, entry)
	switch {
	case errors.Is(err, errDuplicateSource):
		existing, getErr := s.repo.GetBySource(ctx, entry.OrgID, entry.SourceType, entry.SourceID)
		if getErr != nil {
			return JournalEntry{}, fmt.Errorf("%w: duplicate resolution: %v", shared.ErrPostingFailed, getErr)
		}
		s.logger.Info("duplicate posting, returning existing entry",
			slog.String("source_type", entry.SourceType),
			slog.String("source_id", entry.SourceID),
			slog.Int64("entry_id", existing.ID))
		return existing, nil
	case err != nil:
		// Deliberate availability-over-consistency policy: the calling
		// business operation proceeds, the miss is reconciled manually.
		s.logger.Error("journal posting failed",
			slog.String("source_type", entry.SourceType),
			slog.String("source_id", entry.SourceID),
			slog.Any("error", err))
		return JournalEntry{}, fmt.Errorf("%w: %v", shared.ErrPostingFailed, err)
	}

	if s.audit != nil {
		action := "journal.post"
		if stored.ReversalOf != nil {
			action = "journal.reverse"
		}
		auditErr := s.audit.Record(ctx, audit.Entry{
			OrgID:        stored.OrgID,
			UserID:       actor.UserID,
			UserRole:     actor.Role,
			Action:       action,
			ResourceType: "journal_entry",
			ResourceID:   strconv.FormatInt(stored.ID, 10),
			IP:           actor.IP,
			After: map[string]any{
				"source_type": stored.SourceType,
				"source_id":   stored.SourceID,
				"date":        stored.Date,
				"total_debit": totalDebit(stored.Lines).String(),
			},
			At: s.now().UTC(),
		})
		if auditErr != nil {
			s.logger.Error("audit record failed", slog.String("action", action), slog.Any("error", auditErr))
		}
	}
	return stored, nil
}

// normalize rounds every line through the shared money primitive.
func normalize(lines []Line) []Line {
	for i := range lines {
		lines[i].Debit = tax.RoundMoney(lines[i].Debit)
		lines[i].Credit = tax.RoundMoney(lines[i].Credit)
	}
	return lines
}

// validateLines enforces the balance invariant before anything is written.
func validateLines(lines []Line) error {
	if len(lines) < 2 {
		return fmt.Errorf("entry needs at least 2 lines, has %d", len(lines))
	}
	var debits, credits decimal.Decimal
	for i, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("line %d has a negative amount", i)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("line %d is both debit and credit", i)
		}
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	if !debits.Equal(credits) {
		return fmt.Errorf("debits %s != credits %s", debits, credits)
	}
	return nil
}

func totalDebit(lines []Line) decimal.Decimal {
	var sum decimal.Decimal
	for _, line := range lines {
		sum = sum.Add(line.Debit)
	}
	return sum
}
