package store

import (
	"context"
	"errors"

	"vonfrey/internal/report"
)

// ErrNotFound 表示指定 ID 的报告不存在。
var ErrNotFound = errors.New("report not found")

// Store is the entry point for database access.
type Store interface {
	// Reports returns the report repository.
	Reports() ReportRepository
	// Close closes the store connection.
	Close() error
}

// ReportRepository handles report persistence. Each saved report is a single
// computed batch; records are never edited after Save.
type ReportRepository interface {
	Save(ctx context.Context, rep *report.Report) error
	FindByID(ctx context.Context, id string) (*report.Report, error)
	ListRecent(ctx context.Context, limit int) ([]report.Summary, error)
}
