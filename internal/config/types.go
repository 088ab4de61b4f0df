package config

import "strings"

// Config 是 vonfrey 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Tables   TablesConfig   `toml:"tables"`
	Estimate EstimateConfig `toml:"estimate"`
	Report   ReportConfig   `toml:"report"`
	Store    StoreConfig    `toml:"store"`
	Batch    BatchConfig    `toml:"batch"`
}

type AppConfig struct {
	Env         string `toml:"env"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"` // text | json | tint
	LogPath     string `toml:"log_path"`
	HTTPAddr    string `toml:"http_addr"`
	HTTPEnabled bool   `toml:"http_enabled"`
}

// TablesConfig 指向标定表与 k 值表（制表符分隔、UTF-8）。
type TablesConfig struct {
	CalibrationPath string `toml:"calibration_path"`
	CoefficientPath string `toml:"coefficient_path"`
	LogMode         string `toml:"log_mode"` // canonical: log10(g*10000) | raw: log10(g)
	Watch           bool   `toml:"watch"`
}

// EstimateConfig 保存默认计算模式，单次请求可覆盖。
type EstimateConfig struct {
	DeltaMode    string `toml:"delta_mode"`    // count | span
	TerminalMode string `toml:"terminal_mode"` // second_to_last | full
}

type ReportConfig struct {
	Language string `toml:"language"` // zh | en
	BOM      bool   `toml:"bom"`
	Format   string `toml:"format"` // csv | tsv | json | yaml | html
}

type StoreConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	ListLimit int    `toml:"list_limit"`
}

// BatchConfig 描述启动时执行一次的批量计算；SequencesPath 为空时跳过。
type BatchConfig struct {
	SequencesPath string  `toml:"sequences_path"`
	MinWeight     float64 `toml:"min_weight"`
	MaxWeight     float64 `toml:"max_weight"`
	OutputPath    string  `toml:"output_path"`
}

// Enabled 报告是否配置了批量任务。
func (b BatchConfig) Enabled() bool { return b.SequencesPath != "" }

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
