package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vonfrey/internal/report"
	"vonfrey/internal/store"
	"vonfrey/internal/store/model"
	"vonfrey/internal/threshold"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) Save(ctx context.Context, rep *report.Report) error {
	if rep == nil || rep.ID == "" {
		return fmt.Errorf("report id cannot be empty")
	}
	m, err := toModel(rep)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ReportRepo) FindByID(ctx context.Context, id string) (*report.Report, error) {
	var m model.ReportModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return fromModel(&m)
}

func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]report.Summary, error) {
	var rows []model.ReportModel
	q := r.db.WithContext(ctx).
		Omit("records_json").
		Order("created_at_ms DESC").
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]report.Summary, 0, len(rows))
	for _, m := range rows {
		out = append(out, report.Summary{
			ID:           m.ID,
			CreatedAt:    time.UnixMilli(m.CreatedAtMs).UTC(),
			MinWeight:    m.MinWeight,
			MaxWeight:    m.MaxWeight,
			DeltaMode:    threshold.DeltaMode(m.DeltaMode),
			TerminalMode: threshold.TerminalMode(m.TerminalMode),
			Sequences:    m.Sequences,
			Successes:    m.Successes,
			Failures:     m.Failures,
		})
	}
	return out, nil
}

// storedRecords 是 records_json 列的内容：明细记录与范围摘要。
type storedRecords struct {
	Range   report.RangeSummary      `json:"range"`
	Records []threshold.ResultRecord `json:"records"`
}

func toModel(rep *report.Report) (*model.ReportModel, error) {
	payload, err := json.Marshal(storedRecords{Range: rep.Range, Records: rep.Records})
	if err != nil {
		return nil, fmt.Errorf("encode report records: %w", err)
	}
	return &model.ReportModel{
		ID:            rep.ID,
		MinWeight:     rep.Range.MinWeight,
		MaxWeight:     rep.Range.MaxWeight,
		MedianIndex:   rep.Range.MedianIndex,
		Delta:         rep.Range.Delta,
		DeltaMode:     string(rep.DeltaMode),
		TerminalMode:  string(rep.TerminalMode),
		TablesVersion: rep.TablesVer,
		Sequences:     len(rep.Records),
		Successes:     rep.Successes,
		Failures:      rep.Failures,
		RecordsJSON:   datatypes.JSON(payload),
		CreatedAtMs:   rep.CreatedAt.UnixMilli(),
	}, nil
}

func fromModel(m *model.ReportModel) (*report.Report, error) {
	var stored storedRecords
	if len(m.RecordsJSON) > 0 {
		if err := json.Unmarshal(m.RecordsJSON, &stored); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", m.ID, err)
		}
	}
	return &report.Report{
		ID:           m.ID,
		CreatedAt:    time.UnixMilli(m.CreatedAtMs).UTC(),
		Range:        stored.Range,
		DeltaMode:    threshold.DeltaMode(m.DeltaMode),
		TerminalMode: threshold.TerminalMode(m.TerminalMode),
		TablesVer:    m.TablesVersion,
		Records:      stored.Records,
		Successes:    m.Successes,
		Failures:     m.Failures,
	}, nil
}
