package periodlockhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/evgarage-erp/evgarage-erp/internal/periodlock"
	"github.com/evgarage-erp/evgarage-erp/internal/platform/httpx"
	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

const testOrgID = "8b7f7e4e-9f3f-4c57-a1c8-0f8d6de2b001"

type fakeRepo struct {
	locks map[shared.Period]periodlock.Lock
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{locks: map[shared.Period]periodlock.Lock{}}
}

func (f *fakeRepo) Get(_ context.Context, _ uuid.UUID, period shared.Period) (periodlock.Lock, error) {
	l, ok := f.locks[period]
	if !ok {
		return periodlock.Lock{}, shared.ErrNotFound
	}
	return l, nil
}

func (f *fakeRepo) List(_ context.Context, _ uuid.UUID) ([]periodlock.Lock, error) {
	out := make([]periodlock.Lock, 0, len(f.locks))
	for _, l := range f.locks {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, lock periodlock.Lock) (periodlock.Lock, error) {
	if _, ok := f.locks[lock.Period]; ok {
		return periodlock.Lock{}, fmt.Errorf("%w: already locked", shared.ErrConflict)
	}
	lock.ID = int64(len(f.locks) + 1)
	lock.Status = periodlock.StatusLocked
	f.locks[lock.Period] = lock
	return lock, nil
}

func (f *fakeRepo) Relock(_ context.Context, _ uuid.UUID, period shared.Period, by, reason string, at time.Time) (periodlock.Lock, error) {
	l := f.locks[period]
	l.Status = periodlock.StatusLocked
	l.LockedBy = by
	l.LockReason = reason
	l.LockedAt = at
	l.UnlockExpiresAt = nil
	f.locks[period] = l
	return l, nil
}

func (f *fakeRepo) Unlock(_ context.Context, _ uuid.UUID, period shared.Period, by, reason string, at, expires time.Time) (periodlock.Lock, error) {
	l := f.locks[period]
	l.Status = periodlock.StatusUnlockedAmendment
	l.UnlockedBy = &by
	l.UnlockedAt = &at
	l.UnlockReason = &reason
	l.UnlockExpiresAt = &expires
	l.ExtensionCount = 0
	f.locks[period] = l
	return l, nil
}

func (f *fakeRepo) Extend(_ context.Context, _ uuid.UUID, period shared.Period, newExpiry time.Time, _ int) (periodlock.Lock, error) {
	l := f.locks[period]
	l.UnlockExpiresAt = &newExpiry
	l.ExtensionCount++
	f.locks[period] = l
	return l, nil
}

func (f *fakeRepo) SweepExpired(_ context.Context, _ time.Time) ([]periodlock.Lock, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (chi.Router, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc := periodlock.NewService(repo, nil, nil, nil, time.April)
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r, repo
}

func doRequest(r http.Handler, method, path string, body any, role shared.Role) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpx.HeaderOrgID, testOrgID)
	req.Header.Set(httpx.HeaderActorID, "u-1")
	req.Header.Set(httpx.HeaderActorRole, string(role))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLockEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodPost, "/periods/2026-01/lock", map[string]string{"reason": "month closed"}, shared.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Period string `json:"period"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "2026-01", view.Period)
	require.Equal(t, "LOCKED", view.Status)
}

func TestLockRequiresGatewayHeaders(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/periods/2026-01/lock", bytes.NewBufferString(`{"reason":"x"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLockForbiddenRole(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodPost, "/periods/2026-01/lock", map[string]string{"reason": "closing"}, shared.RoleTechnician)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLockInvalidPeriod(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodPost, "/periods/2026-13/lock", map[string]string{"reason": "closing"}, shared.RoleAdmin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckLockedPeriodReturns423(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodPost, "/periods/2026-01/lock", map[string]string{"reason": "closed"}, shared.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/periods/2026-01/check", nil, shared.RoleAccountant)
	require.Equal(t, http.StatusLocked, rec.Code)

	var problem struct {
		Period   string `json:"period"`
		LockedBy string `json:"locked_by"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "2026-01", problem.Period)
	require.Equal(t, "u-1", problem.LockedBy)
}

func TestCheckOpenPeriodReturns204(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/periods/2026-05/check", nil, shared.RoleAccountant)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUnlockValidatesReasonLength(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodPost, "/periods/2026-01/lock", map[string]string{"reason": "closed"}, shared.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodPost, "/periods/2026-01/unlock", map[string]any{"reason": "short"}, shared.RoleOwner)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(r, http.MethodPost, "/periods/2026-01/unlock", map[string]any{"reason": "missed vendor invoice", "window_hours": 24}, shared.RoleOwner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Status          string     `json:"status"`
		UnlockExpiresAt *time.Time `json:"unlock_expires_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "UNLOCKED_AMENDMENT", view.Status)
	require.NotNil(t, view.UnlockExpiresAt)
}

func TestFiscalYearLock(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodPost, "/periods/fiscal-year/2026/lock", nil, shared.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []struct {
			Period string `json:"period"`
			Locked bool   `json:"locked"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 12)
	require.Equal(t, "2026-04", resp.Results[0].Period)
	for _, res := range resp.Results {
		require.True(t, res.Locked, "period %s", res.Period)
	}
}

func TestGetNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doRequest(r, http.MethodGet, "/periods/2026-09/", nil, shared.RoleAdmin)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
