package threshold

import (
	"fmt"
	"strings"
)

// DeltaMode 选择平均对数间距 δ 的分母。
type DeltaMode string

const (
	// DeltaByCount: (max_log - min_log) / (入选条目数 - 1)。
	DeltaByCount DeltaMode = "count"
	// DeltaBySpan: (max_log - min_log) / (max_index - min_index)，原工具的写法。
	DeltaBySpan DeltaMode = "span"
)

// ParseDeltaMode 解析 δ 模式，空串返回默认的 count。
func ParseDeltaMode(s string) (DeltaMode, error) {
	switch DeltaMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DeltaByCount:
		return DeltaByCount, nil
	case DeltaBySpan:
		return DeltaBySpan, nil
	default:
		return "", fmt.Errorf("unknown delta mode %q (want count|span)", s)
	}
}

// TerminalMode 选择哪一根刺激丝作为 Xf。
type TerminalMode string

const (
	// TerminalSecondToLast 走完除最后一个反应之外的序列，得到最后实际施加的刺激丝。
	TerminalSecondToLast TerminalMode = "second_to_last"
	// TerminalFull 走完整条序列，得到“下一根待测”的刺激丝。
	TerminalFull TerminalMode = "full"
)

// ParseTerminalMode 解析终点模式，空串返回默认的 second_to_last。
func ParseTerminalMode(s string) (TerminalMode, error) {
	switch TerminalMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", TerminalSecondToLast:
		return TerminalSecondToLast, nil
	case TerminalFull:
		return TerminalFull, nil
	default:
		return "", fmt.Errorf("unknown terminal mode %q (want second_to_last|full)", s)
	}
}
