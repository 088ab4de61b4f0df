package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"vonfrey/internal/calibration"
	"vonfrey/internal/coefficient"
	"vonfrey/internal/report"
	"vonfrey/internal/store"
	"vonfrey/internal/tables"
	"vonfrey/internal/threshold"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	nineFibers = "克数\t序号\n" +
		"0.008\t1\n0.02\t2\n0.04\t3\n0.07\t4\n0.16\t5\n0.4\t6\n0.6\t7\n1.0\t8\n1.4\t9\n"
	kValues = "测量结果\tk值\n0101\t0.5\n0011\t-0.3\n0110\tn/a\n"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Save(ctx context.Context, rep *report.Report) error {
	return m.Called(ctx, rep).Error(0)
}

func (m *MockReportRepository) FindByID(ctx context.Context, id string) (*report.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}

func (m *MockReportRepository) ListRecent(ctx context.Context, limit int) ([]report.Summary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.Summary), args.Error(1)
}

func newRegistry(t *testing.T) *tables.Registry {
	t.Helper()
	cal, err := calibration.Load(strings.NewReader(nineFibers), calibration.LogCanonical)
	require.NoError(t, err)
	coef, err := coefficient.Load(strings.NewReader(kValues))
	require.NoError(t, err)
	return tables.NewStaticRegistry(cal, coef)
}

func fixedBuilder() *report.Builder {
	return &report.Builder{
		Now:   func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
		NewID: func() string { return "fixed-id" },
	}
}

func newCalculator(t *testing.T, repo *MockReportRepository) *Calculator {
	t.Helper()
	var reports store.ReportRepository
	if repo != nil {
		reports = repo
	}
	calc, err := NewCalculator(newRegistry(t), Defaults{}, fixedBuilder(), reports)
	require.NoError(t, err)
	return calc
}

func TestCalculateMixedBatch(t *testing.T) {
	calc := newCalculator(t, nil)
	rep, err := calc.CalculateText(context.Background(), 0.008, 1.4, "0101\n\n 0 1 0 1 \r\n0000\n0110\nX\n")
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", rep.ID)
	assert.Equal(t, threshold.DeltaByCount, rep.DeltaMode)
	assert.Equal(t, threshold.TerminalSecondToLast, rep.TerminalMode)
	assert.Equal(t, int64(1), rep.TablesVer)
	require.Len(t, rep.Records, 5)
	assert.Equal(t, 2, rep.Successes)
	assert.Equal(t, 3, rep.Failures)

	first := rep.Records[0]
	require.True(t, first.OK())
	// 5 -> 6 -> 5 -> 6，最后一个反应不参与行走
	assert.Equal(t, 6, first.Estimate.TerminalIndex)
	assert.InDelta(t, 0.4, first.Estimate.FinalWeight, 1e-12)
	assert.Equal(t, first.Estimate, rep.Records[1].Estimate)

	assert.Equal(t, threshold.KindUnknownSequence, rep.Records[2].Failure.Kind)
	assert.Equal(t, threshold.KindInvalidCoefficient, rep.Records[3].Failure.Kind)
	assert.Equal(t, threshold.KindSequenceTooShort, rep.Records[4].Failure.Kind)
}

func TestCalculateModeOverrides(t *testing.T) {
	calc := newCalculator(t, nil)
	rep, err := calc.Calculate(context.Background(), Request{
		MinWeight:    0.008,
		MaxWeight:    1.4,
		Sequences:    []string{"0101"},
		DeltaMode:    "SPAN",
		TerminalMode: "full",
	})
	require.NoError(t, err)
	assert.Equal(t, threshold.DeltaBySpan, rep.DeltaMode)
	assert.Equal(t, threshold.TerminalFull, rep.TerminalMode)
	require.True(t, rep.Records[0].OK())
	assert.Equal(t, 5, rep.Records[0].Estimate.TerminalIndex)
}

func TestCalculateErrors(t *testing.T) {
	calc := newCalculator(t, nil)
	ctx := context.Background()

	_, err := calc.Calculate(ctx, Request{MinWeight: 0.41, MaxWeight: 0.59, Sequences: []string{"0101"}})
	assert.ErrorIs(t, err, threshold.ErrEmptyRange)

	_, err = calc.Calculate(ctx, Request{MinWeight: 0.4, MaxWeight: 0.4})
	assert.ErrorIs(t, err, threshold.ErrDegenerateRange)

	_, err = calc.Calculate(ctx, Request{MinWeight: 0.008, MaxWeight: 1.4, DeltaMode: "median"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = calc.Calculate(ctx, Request{MinWeight: 0.008, MaxWeight: 1.4, TerminalMode: "last"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = calc.Calculate(cancelled, Request{MinWeight: 0.008, MaxWeight: 1.4})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFibers(t *testing.T) {
	opts := newCalculator(t, nil).Fibers()
	assert.Equal(t, calibration.LogCanonical, opts.LogMode)
	require.Len(t, opts.Weights, 9)
	assert.Equal(t, 0.008, opts.Weights[0])
	assert.Equal(t, 1.4, opts.Weights[8])
	assert.Len(t, opts.Entries, 9)
}

func TestStoreDisabled(t *testing.T) {
	calc := newCalculator(t, nil)
	ctx := context.Background()
	assert.False(t, calc.StoreEnabled())
	assert.ErrorIs(t, calc.Save(ctx, &report.Report{ID: "x"}), ErrStoreDisabled)
	_, err := calc.Report(ctx, "x")
	assert.ErrorIs(t, err, ErrStoreDisabled)
	_, err = calc.Reports(ctx, 10)
	assert.ErrorIs(t, err, ErrStoreDisabled)
}

func TestStoreDelegation(t *testing.T) {
	repo := new(MockReportRepository)
	calc := newCalculator(t, repo)
	ctx := context.Background()
	rep := &report.Report{ID: "r1"}

	repo.On("Save", ctx, rep).Return(nil)
	repo.On("FindByID", ctx, "r1").Return(rep, nil)
	repo.On("ListRecent", ctx, 5).Return([]report.Summary{rep.Summary()}, nil)

	assert.True(t, calc.StoreEnabled())
	require.NoError(t, calc.Save(ctx, rep))
	got, err := calc.Report(ctx, "r1")
	require.NoError(t, err)
	assert.Same(t, rep, got)
	list, err := calc.Reports(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	repo.AssertExpectations(t)
}
