package threshold

import (
	"errors"
	"fmt"
)

// 范围错误：对当前选择致命，需要重新选择克重范围。
var (
	ErrEmptyRange      = errors.New("no calibration entries within the selected weight range")
	ErrDegenerateRange = errors.New("selected range cannot define a filament spacing")
)

// 单条序列错误：只影响该序列，批次继续。
var (
	ErrSequenceTooShort   = errors.New("sequence too short")
	ErrUnknownIndex       = errors.New("terminal index not present in calibration table")
	ErrUnknownSequence    = errors.New("sequence not found in coefficient table")
	ErrInvalidCoefficient = errors.New("coefficient is not numeric")
	ErrNonFiniteResult    = errors.New("threshold is not a finite number")
)

// ErrorKind 是写入失败记录的稳定错误类别。
type ErrorKind string

const (
	KindSequenceTooShort   ErrorKind = "sequence_too_short"
	KindUnknownIndex       ErrorKind = "unknown_index"
	KindUnknownSequence    ErrorKind = "unknown_sequence"
	KindInvalidCoefficient ErrorKind = "invalid_coefficient"
	KindNonFiniteResult    ErrorKind = "non_finite_result"
	KindEmptyRange         ErrorKind = "empty_range"
	KindDegenerateRange    ErrorKind = "degenerate_range"
	KindUnknown            ErrorKind = "unknown"
)

var kindBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrSequenceTooShort, KindSequenceTooShort},
	{ErrUnknownIndex, KindUnknownIndex},
	{ErrUnknownSequence, KindUnknownSequence},
	{ErrInvalidCoefficient, KindInvalidCoefficient},
	{ErrNonFiniteResult, KindNonFiniteResult},
	{ErrEmptyRange, KindEmptyRange},
	{ErrDegenerateRange, KindDegenerateRange},
}

// KindOf 将错误映射到 ErrorKind。nil 返回空串。
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var seqErr *SequenceError
	if errors.As(err, &seqErr) {
		return seqErr.Kind
	}
	for _, m := range kindBySentinel {
		if errors.Is(err, m.err) {
			return m.kind
		}
	}
	return KindUnknown
}

// SequenceError 携带出错的序列与错误类别。
type SequenceError struct {
	Kind     ErrorKind
	Sequence string
	Err      error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence %q: %v", e.Sequence, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }

func sequenceError(seq string, sentinel error, format string, args ...any) *SequenceError {
	err := sentinel
	if format != "" {
		err = fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
	}
	return &SequenceError{Kind: KindOf(sentinel), Sequence: seq, Err: err}
}

// IsRangeError 报告 err 是否属于范围类错误。
func IsRangeError(err error) bool {
	return errors.Is(err, ErrEmptyRange) || errors.Is(err, ErrDegenerateRange)
}
