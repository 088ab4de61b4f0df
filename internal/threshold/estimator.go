package threshold

import (
	"fmt"
	"math"

	"vonfrey/internal/calibration"
	"vonfrey/internal/coefficient"
)

// Estimate 是一次成功计算的全部中间量，供研究者复核推导过程。
type Estimate struct {
	TerminalIndex  int     `json:"terminal_index" yaml:"terminal_index"`
	FinalWeight    float64 `json:"final_weight_g" yaml:"final_weight_g"`
	Xf             float64 `json:"xf" yaml:"xf"`
	K              float64 `json:"k" yaml:"k"`
	Delta          float64 `json:"delta" yaml:"delta"`
	ThresholdLog   float64 `json:"threshold_log" yaml:"threshold_log"`
	ThresholdGrams float64 `json:"threshold_g" yaml:"threshold_g"`
}

// Failure 描述单条序列的失败原因。
type Failure struct {
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
}

// ResultRecord 是报告中的一行：Estimate 与 Failure 恰有一个非空。创建后不再修改。
type ResultRecord struct {
	Raw      string    `json:"raw" yaml:"raw"`
	Sequence string    `json:"sequence" yaml:"sequence"`
	Estimate *Estimate `json:"estimate,omitempty" yaml:"estimate,omitempty"`
	Failure  *Failure  `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// OK 报告该行是否计算成功。
func (r ResultRecord) OK() bool { return r.Estimate != nil }

// Err 将失败行还原为错误值，成功行返回 nil。
func (r ResultRecord) Err() error {
	if r.Failure == nil {
		return nil
	}
	return &SequenceError{Kind: r.Failure.Kind, Sequence: r.Sequence, Err: fmt.Errorf("%s", r.Failure.Message)}
}

// Inputs 汇集一次批量计算所需的全部显式参数。
type Inputs struct {
	Selection    Selection
	Calibration  *calibration.Table
	Coefficients *coefficient.Table
	Terminal     TerminalMode
}

// Estimate 对单条原始输入计算 50% 缩足阈值。任一步失败都生成失败记录。
func (in Inputs) Estimate(raw string) ResultRecord {
	seq := Clean(raw)
	rec := ResultRecord{Raw: raw, Sequence: seq}
	est, err := in.estimate(seq)
	if err != nil {
		rec.Failure = &Failure{Kind: KindOf(err), Message: err.Error()}
		return rec
	}
	rec.Estimate = est
	return rec
}

// EstimateAll 逐条计算；单条失败不会中断批次，输出与输入一一对应。
func (in Inputs) EstimateAll(lines []string) []ResultRecord {
	out := make([]ResultRecord, 0, len(lines))
	for _, line := range lines {
		out = append(out, in.Estimate(line))
	}
	return out
}

func (in Inputs) estimate(seq string) (*Estimate, error) {
	if in.Calibration == nil || in.Coefficients == nil {
		return nil, fmt.Errorf("estimator inputs incomplete")
	}
	sel := in.Selection
	idx, err := Terminal(in.Terminal, sel.MedianIndex, seq, sel.MinIndex, sel.MaxIndex)
	if err != nil {
		return nil, err
	}
	fiber, ok := in.Calibration.ByIndex(idx)
	if !ok {
		return nil, sequenceError(seq, ErrUnknownIndex, "index %d", idx)
	}
	entry, ok := in.Coefficients.Lookup(coefficient.Pattern(seq))
	if !ok {
		return nil, sequenceError(seq, ErrUnknownSequence, "")
	}
	k, err := entry.Coefficient()
	if err != nil {
		return nil, sequenceError(seq, ErrInvalidCoefficient, "%q", entry.Raw)
	}
	thresholdLog := fiber.LogPosition + k*sel.Delta
	grams := in.Calibration.Mode().Grams(thresholdLog)
	if !finite(thresholdLog) || !finite(grams) {
		return nil, sequenceError(seq, ErrNonFiniteResult, "Xf=%v k=%v delta=%v", fiber.LogPosition, k, sel.Delta)
	}
	return &Estimate{
		TerminalIndex:  idx,
		FinalWeight:    fiber.WeightGrams,
		Xf:             fiber.LogPosition,
		K:              k,
		Delta:          sel.Delta,
		ThresholdLog:   thresholdLog,
		ThresholdGrams: grams,
	}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
