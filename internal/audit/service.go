package audit

import (
	"context"
	"fmt"
)

// Lister is the read port behind the timeline endpoint.
type Lister interface {
	List(ctx context.Context, f Filter, limit, offset int) ([]Entry, error)
}

// Result wraps a timeline page.
type Result struct {
	Rows    []Entry
	Page    int
	HasNext bool
}

// Service coordinates audit reads for the admin surface.
type Service struct {
	repo Lister
}

// NewService builds the audit timeline service.
func NewService(repo Lister) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit entries, newest first. It fetches one row
// beyond the page size to detect a following page.
func (s *Service) Timeline(ctx context.Context, f Filter) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.List(ctx, f, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return Result{Rows: rows, Page: page, HasNext: hasNext}, nil
}
