package threshold

import "fmt"

// Walk 从 start 出发逐字符移动：'0' 换更重的刺激丝（+1），'1' 换更轻的（-1），
// 其他字符忽略。每一步之后都夹紧到 [minIndex, maxIndex]。
func Walk(start int, seq string, minIndex, maxIndex int) int {
	cur := clamp(start, minIndex, maxIndex)
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case '0':
			cur++
		case '1':
			cur--
		default:
			continue
		}
		cur = clamp(cur, minIndex, maxIndex)
	}
	return cur
}

// WalkSecondToLast 走完除最后一个字符外的序列，返回最后实际施加的刺激丝序号。
func WalkSecondToLast(start int, seq string, minIndex, maxIndex int) (int, error) {
	if len(seq) < 2 {
		return 0, sequenceError(seq, ErrSequenceTooShort, "need at least 2 responses, got %d", len(seq))
	}
	return Walk(start, seq[:len(seq)-1], minIndex, maxIndex), nil
}

// Terminal 按 mode 计算终点序号。
func Terminal(mode TerminalMode, start int, seq string, minIndex, maxIndex int) (int, error) {
	switch mode {
	case TerminalFull:
		if len(seq) == 0 {
			return 0, sequenceError(seq, ErrSequenceTooShort, "empty sequence")
		}
		return Walk(start, seq, minIndex, maxIndex), nil
	case TerminalSecondToLast, "":
		return WalkSecondToLast(start, seq, minIndex, maxIndex)
	default:
		return 0, fmt.Errorf("unknown terminal mode %q", mode)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
