package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"vonfrey/internal/threshold"

	"github.com/shopspring/decimal"
)

// Format 是导出格式。
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// ParseFormat 解析导出格式，空串视为 csv。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatTSV, FormatJSON, FormatYAML, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// ContentType 返回 HTTP 下载时使用的 MIME 类型。
func (f Format) ContentType() string {
	switch f {
	case FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatYAML:
		return "application/yaml; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Language 选择表头语言。
type Language string

const (
	LangZH Language = "zh"
	LangEN Language = "en"
)

// ParseLanguage 解析表头语言，未知值返回 zh。
func ParseLanguage(s string) Language {
	if Language(strings.ToLower(strings.TrimSpace(s))) == LangEN {
		return LangEN
	}
	return LangZH
}

// Filename 返回建议的下载文件名。
func Filename(lang Language, f Format) string {
	base := "VonFrey_结果"
	if lang == LangEN {
		base = "vonfrey_report"
	}
	return base + "." + string(f)
}

type columns struct {
	Sequence, FinalWeight, Xf, K, Delta, Threshold, Error string
}

var headers = map[Language]columns{
	LangZH: {"反应序列", "最后刺激丝克重", "Xf（编号）", "k 值", "delta", "50% 缩足阈值（克）", "错误"},
	LangEN: {"sequence", "final_weight_g", "xf", "k", "delta", "threshold_g", "error"},
}

var errorText = map[Language]map[threshold.ErrorKind]string{
	LangZH: {
		threshold.KindSequenceTooShort:   "序列过短",
		threshold.KindUnknownIndex:       "找不到对应序号",
		threshold.KindUnknownSequence:    "k 值表中未找到该序列",
		threshold.KindInvalidCoefficient: "k 值无法转换为数值",
		threshold.KindNonFiniteResult:    "阈值超出数值范围",
	},
	LangEN: {
		threshold.KindSequenceTooShort:   "sequence too short",
		threshold.KindUnknownIndex:       "terminal index not in calibration table",
		threshold.KindUnknownSequence:    "sequence not in k-value table",
		threshold.KindInvalidCoefficient: "k-value is not numeric",
		threshold.KindNonFiniteResult:    "threshold out of numeric range",
	},
}

// ErrorText 返回失败类别的展示文本。
func ErrorText(lang Language, kind threshold.ErrorKind) string {
	if txt, ok := errorText[lang][kind]; ok {
		return txt
	}
	return string(kind)
}

// 展示精度与原工具一致：Xf 3 位，delta 与阈值 4 位，克数与 k 值原样。
const (
	xfPlaces        = 3
	deltaPlaces     = 4
	thresholdPlaces = 4
)

// decimal.NewFromFloat 对 NaN/Inf 会 panic，这类值原样格式化。
func round(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).Round(places).String()
}

func roundFloat(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func plain(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

// rows 将报告展开为表头 + 数据行。失败行只填序列与错误列。
func rows(rep *Report, lang Language) [][]string {
	h := headers[lang]
	out := make([][]string, 0, len(rep.Records)+1)
	out = append(out, []string{h.Sequence, h.FinalWeight, h.Xf, h.K, h.Delta, h.Threshold, h.Error})
	for _, rec := range rep.Records {
		if est := rec.Estimate; est != nil {
			out = append(out, []string{
				rec.Sequence,
				plain(est.FinalWeight),
				round(est.Xf, xfPlaces),
				plain(est.K),
				round(est.Delta, deltaPlaces),
				round(est.ThresholdGrams, thresholdPlaces),
				"",
			})
			continue
		}
		kind := threshold.KindUnknown
		if rec.Failure != nil {
			kind = rec.Failure.Kind
		}
		seq := rec.Sequence
		if seq == "" {
			seq = rec.Raw
		}
		out = append(out, []string{seq, "", "", "", "", "", ErrorText(lang, kind)})
	}
	return out
}
