package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type stubLister struct {
	rows       []Entry
	lastFilter Filter
	lastLimit  int
	lastOffset int
}

func (s *stubLister) List(_ context.Context, f Filter, limit, offset int) ([]Entry, error) {
	s.lastFilter = f
	s.lastLimit = limit
	s.lastOffset = offset
	if limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func entryRows(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{ID: int64(n - i), Action: "period.lock"}
	}
	return out
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubLister{rows: entryRows(3)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filter{OrgID: uuid.New(), Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.HasNext {
		t.Fatalf("expected hasNext")
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected limit pageSize+1, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
}

func TestTimelineDefaultsAndCaps(t *testing.T) {
	repo := &stubLister{}
	svc := NewService(repo)

	if _, err := svc.Timeline(context.Background(), Filter{}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastLimit != 21 {
		t.Fatalf("default page size: limit %d", repo.lastLimit)
	}

	if _, err := svc.Timeline(context.Background(), Filter{Page: 3, PageSize: 500}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastLimit != 101 {
		t.Fatalf("capped page size: limit %d", repo.lastLimit)
	}
	if repo.lastOffset != 200 {
		t.Fatalf("offset %d", repo.lastOffset)
	}
}

func TestTimelineLastPage(t *testing.T) {
	repo := &stubLister{rows: entryRows(2)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 || result.HasNext {
		t.Fatalf("rows %d hasNext %v", len(result.Rows), result.HasNext)
	}
}
