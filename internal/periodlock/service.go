package periodlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evgarage-erp/evgarage-erp/internal/audit"
	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

const (
	// DefaultWindowHours is the amendment window applied when unlock does not
	// specify one.
	DefaultWindowHours = 72
	// maxExtensions caps extensions within one unlock cycle.
	maxExtensions = 2
	// maxAmendmentWindow caps the total window measured from the original unlock.
	maxAmendmentWindow = 7 * 24 * time.Hour
)

var (
	lockRoles   = []shared.Role{shared.RoleAdmin, shared.RoleOwner, shared.RoleAccountant}
	unlockRoles = []shared.Role{shared.RoleAdmin, shared.RoleOwner}
)

// SweepMetrics receives auto-relock transition counts.
type SweepMetrics interface {
	AutoRelocked(n int)
}

// Service drives the lock state machine. All transitions are CAS updates in
// the repository; the service adds role checks, window arithmetic, the audit
// trail and cache invalidation.
type Service struct {
	repo            Repository
	cache           *Cache
	audit           audit.Recorder
	logger          *slog.Logger
	metrics         SweepMetrics
	now             func() time.Time
	fiscalYearStart time.Month
}

// NewService constructs the lock service. cache, recorder and metrics may be nil.
func NewService(repo Repository, cache *Cache, recorder audit.Recorder, logger *slog.Logger, fiscalYearStart time.Month) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if fiscalYearStart < time.January || fiscalYearStart > time.December {
		fiscalYearStart = time.April
	}
	return &Service{
		repo:            repo,
		cache:           cache,
		audit:           recorder,
		logger:          logger,
		now:             time.Now,
		fiscalYearStart: fiscalYearStart,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches sweep metrics.
func (s *Service) WithMetrics(m SweepMetrics) {
	s.metrics = m
}

// CheckOption adjusts Check behaviour.
type CheckOption func(*checkOptions)

type checkOptions struct {
	allowMissing bool
	sourceType   string
	sourceID     string
}

// AllowMissingContext opts a system-triggered posting out of the lock check
// when it legitimately has no organization or effective date. The skip is
// logged; it is never the silent default.
func AllowMissingContext() CheckOption {
	return func(o *checkOptions) { o.allowMissing = true }
}

// WithSource labels the check with the triggering document for the skip log.
func WithSource(sourceType, sourceID string) CheckOption {
	return func(o *checkOptions) {
		o.sourceType = sourceType
		o.sourceID = sourceID
	}
}

// Check fails with *shared.PeriodLockedError iff the record for
// (org, month-of-date) is currently LOCKED. An amendment window, or no record
// at all, permits the write.
func (s *Service) Check(ctx context.Context, org uuid.UUID, date time.Time, opts ...CheckOption) error {
	var o checkOptions
	for _, opt := range opts {
		opt(&o)
	}
	if org == uuid.Nil || date.IsZero() {
		if !o.allowMissing {
			return fmt.Errorf("%w: period check requires organization and effective date", shared.ErrValidation)
		}
		s.logger.Warn("period lock check skipped: missing context",
			slog.String("source_type", o.sourceType),
			slog.String("source_id", o.sourceID))
		return nil
	}
	period := shared.PeriodOf(date)

	if state, ok := s.cache.Get(ctx, org, period); ok {
		if state.Found && state.Status == StatusLocked {
			return &shared.PeriodLockedError{Period: period, LockedBy: state.LockedBy, LockedAt: state.LockedAt}
		}
		return nil
	}

	lock, err := s.repo.Get(ctx, org, period)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.cache.Store(ctx, org, period, cachedLock{Found: false})
			return nil
		}
		return err
	}
	s.cache.Store(ctx, org, period, cachedLock{Found: true, Status: lock.Status, LockedBy: lock.LockedBy, LockedAt: lock.LockedAt})
	if lock.Status == StatusLocked {
		return &shared.PeriodLockedError{Period: period, LockedBy: lock.LockedBy, LockedAt: lock.LockedAt}
	}
	return nil
}

// LockInput carries parameters for Lock.
type LockInput struct {
	OrgID  uuid.UUID
	Period shared.Period
	Actor  shared.Actor
	Reason string
}

// Lock closes the period. It creates the record on first lock, or re-locks a
// period sitting in its amendment window.
func (s *Service) Lock(ctx context.Context, in LockInput) (Lock, error) {
	if !in.Actor.AnyRole(lockRoles...) {
		return Lock{}, fmt.Errorf("%w: role %s may not lock periods", shared.ErrForbidden, in.Actor.Role)
	}
	if in.OrgID == uuid.Nil {
		return Lock{}, fmt.Errorf("%w: organization required", shared.ErrValidation)
	}
	now := s.now().UTC()

	existing, err := s.repo.Get(ctx, in.OrgID, in.Period)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		created, err := s.repo.Create(ctx, Lock{
			OrgID:      in.OrgID,
			Period:     in.Period,
			Status:     StatusLocked,
			LockedBy:   in.Actor.UserID,
			LockedAt:   now,
			LockReason: in.Reason,
		})
		if err != nil {
			return Lock{}, err
		}
		s.afterTransition(ctx, in.OrgID, in.Period, in.Actor, "period.lock", nil, created)
		return created, nil
	case err != nil:
		return Lock{}, err
	}

	if existing.Status == StatusLocked {
		return Lock{}, fmt.Errorf("%w: period %s already locked", shared.ErrConflict, in.Period)
	}
	relocked, err := s.repo.Relock(ctx, in.OrgID, in.Period, in.Actor.UserID, in.Reason, now)
	if err != nil {
		return Lock{}, err
	}
	s.afterTransition(ctx, in.OrgID, in.Period, in.Actor, "period.relock", &existing, relocked)
	return relocked, nil
}

// UnlockInput carries parameters for Unlock.
type UnlockInput struct {
	OrgID       uuid.UUID
	Period      shared.Period
	Actor       shared.Actor
	Reason      string
	WindowHours int
}

// Unlock opens a bounded amendment window on a locked period.
func (s *Service) Unlock(ctx context.Context, in UnlockInput) (Lock, error) {
	if !in.Actor.AnyRole(unlockRoles...) {
		return Lock{}, fmt.Errorf("%w: role %s may not unlock periods", shared.ErrForbidden, in.Actor.Role)
	}
	if len(strings.TrimSpace(in.Reason)) < 10 {
		return Lock{}, fmt.Errorf("%w: unlock reason must be at least 10 characters", shared.ErrValidation)
	}
	existing, err := s.repo.Get(ctx, in.OrgID, in.Period)
	if err != nil {
		return Lock{}, err
	}
	if existing.Status != StatusLocked {
		return Lock{}, fmt.Errorf("%w: period %s is not locked", shared.ErrConflict, in.Period)
	}

	window := time.Duration(in.WindowHours) * time.Hour
	if window <= 0 {
		window = DefaultWindowHours * time.Hour
	}
	if window > maxAmendmentWindow {
		window = maxAmendmentWindow
	}
	now := s.now().UTC()
	unlocked, err := s.repo.Unlock(ctx, in.OrgID, in.Period, in.Actor.UserID, in.Reason, now, now.Add(window))
	if err != nil {
		return Lock{}, err
	}
	s.afterTransition(ctx, in.OrgID, in.Period, in.Actor, "period.unlock", &existing, unlocked)
	return unlocked, nil
}

// ExtendInput carries parameters for Extend.
type ExtendInput struct {
	OrgID           uuid.UUID
	Period          shared.Period
	Actor           shared.Actor
	AdditionalHours int
}

// Extend pushes the amendment expiry out, at most twice per unlock cycle and
// never past seven days from the original unlock.
func (s *Service) Extend(ctx context.Context, in ExtendInput) (Lock, error) {
	if !in.Actor.AnyRole(unlockRoles...) {
		return Lock{}, fmt.Errorf("%w: role %s may not extend amendment windows", shared.ErrForbidden, in.Actor.Role)
	}
	if in.AdditionalHours <= 0 {
		return Lock{}, fmt.Errorf("%w: additional hours must be positive", shared.ErrValidation)
	}
	existing, err := s.repo.Get(ctx, in.OrgID, in.Period)
	if err != nil {
		return Lock{}, err
	}
	if existing.Status != StatusUnlockedAmendment || existing.UnlockExpiresAt == nil || existing.UnlockedAt == nil {
		return Lock{}, fmt.Errorf("%w: period %s is not in an amendment window", shared.ErrConflict, in.Period)
	}
	if existing.ExtensionCount >= maxExtensions {
		return Lock{}, fmt.Errorf("%w: extension limit of %d reached", shared.ErrConflict, maxExtensions)
	}

	newExpiry := existing.UnlockExpiresAt.Add(time.Duration(in.AdditionalHours) * time.Hour)
	if ceiling := existing.UnlockedAt.Add(maxAmendmentWindow); newExpiry.After(ceiling) {
		newExpiry = ceiling
	}
	extended, err := s.repo.Extend(ctx, in.OrgID, in.Period, newExpiry, existing.ExtensionCount)
	if err != nil {
		return Lock{}, err
	}
	s.afterTransition(ctx, in.OrgID, in.Period, in.Actor, "period.extend", &existing, extended)
	return extended, nil
}

// AutoRelock sweeps expired amendment windows back to LOCKED. The underlying
// update is conditional on the amendment status, so running the sweep from
// several instances at once is safe and a second pass is a no-op.
func (s *Service) AutoRelock(ctx context.Context) (int, error) {
	relocked, err := s.repo.SweepExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	system := shared.Actor{UserID: SystemActor, Role: shared.RoleAdmin}
	for _, lock := range relocked {
		before := lock
		before.Status = StatusUnlockedAmendment
		s.afterTransition(ctx, lock.OrgID, lock.Period, system, "period.auto_relock", &before, lock)
	}
	if s.metrics != nil && len(relocked) > 0 {
		s.metrics.AutoRelocked(len(relocked))
	}
	return len(relocked), nil
}

// FiscalYearInput carries parameters for LockFiscalYear.
type FiscalYearInput struct {
	OrgID uuid.UUID
	Year  int
	Actor shared.Actor
}

// LockFiscalYear locks 12 consecutive periods from the configured fiscal-year
// start month. Failures are reported per period; successful locks stand.
func (s *Service) LockFiscalYear(ctx context.Context, in FiscalYearInput) ([]FiscalYearResult, error) {
	if !in.Actor.AnyRole(lockRoles...) {
		return nil, fmt.Errorf("%w: role %s may not lock periods", shared.ErrForbidden, in.Actor.Role)
	}
	if in.Year < 1900 || in.Year > 9999 {
		return nil, fmt.Errorf("%w: implausible fiscal year %d", shared.ErrValidation, in.Year)
	}
	reason := fmt.Sprintf("fiscal year %d close", in.Year)
	results := make([]FiscalYearResult, 0, 12)
	for _, period := range shared.FiscalYearPeriods(in.Year, s.fiscalYearStart) {
		_, err := s.Lock(ctx, LockInput{OrgID: in.OrgID, Period: period, Actor: in.Actor, Reason: reason})
		res := FiscalYearResult{Period: period, Locked: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

// Get returns the lock record for one period.
func (s *Service) Get(ctx context.Context, org uuid.UUID, period shared.Period) (Lock, error) {
	return s.repo.Get(ctx, org, period)
}

// List returns all lock records for the org, newest period first.
func (s *Service) List(ctx context.Context, org uuid.UUID) ([]Lock, error) {
	return s.repo.List(ctx, org)
}

// afterTransition invalidates the read cache and appends the audit record.
// Audit failures are logged, never propagated.
func (s *Service) afterTransition(ctx context.Context, org uuid.UUID, period shared.Period, actor shared.Actor, action string, before *Lock, after Lock) {
	s.cache.Invalidate(ctx, org, period)
	if s.audit == nil {
		return
	}
	entry := audit.Entry{
		OrgID:        org,
		UserID:       actor.UserID,
		UserRole:     actor.Role,
		Action:       action,
		ResourceType: "period_lock",
		ResourceID:   string(period),
		IP:           actor.IP,
		After:        after.Snapshot(),
		At:           s.now().UTC(),
	}
	if before != nil {
		entry.Before = before.Snapshot()
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
