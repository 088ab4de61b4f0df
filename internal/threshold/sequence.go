package threshold

import "strings"

// Clean 只保留 '0' 与 '1'，其余字符（空白、分隔符等）全部丢弃。
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c == '0' || c == '1' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SplitLines 将多行输入拆成序列列表，跳过空行并去掉首尾空白。
func SplitLines(block string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
