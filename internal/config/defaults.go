package config

import "strings"

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppLogFormat    = "text"
	defaultAppHTTPAddr     = ":9992"
	defaultCalibrationPath = "data/编号表.txt"
	defaultCoefficientPath = "data/k值表.txt"
	defaultLogMode         = "canonical"
	defaultDeltaMode       = "count"
	defaultTerminalMode    = "second_to_last"
	defaultReportLanguage  = "zh"
	defaultReportFormat    = "csv"
	defaultStorePath       = "data/reports.db"
	defaultStoreListLimit  = 50
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Tables.applyDefaults(keys)
	c.Estimate.applyDefaults(keys)
	c.Report.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Batch.normalize()
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		boolFieldDefault("app.http_enabled", &a.HTTPEnabled, true),
	)
	a.LogFormat = strings.ToLower(strings.TrimSpace(a.LogFormat))
}

func (t *TablesConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("tables.calibration_path", &t.CalibrationPath, defaultCalibrationPath),
		stringFieldDefault("tables.coefficient_path", &t.CoefficientPath, defaultCoefficientPath),
		stringFieldDefault("tables.log_mode", &t.LogMode, defaultLogMode),
	)
	t.CalibrationPath = strings.TrimSpace(t.CalibrationPath)
	t.CoefficientPath = strings.TrimSpace(t.CoefficientPath)
	t.LogMode = strings.ToLower(strings.TrimSpace(t.LogMode))
}

func (e *EstimateConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("estimate.delta_mode", &e.DeltaMode, defaultDeltaMode),
		stringFieldDefault("estimate.terminal_mode", &e.TerminalMode, defaultTerminalMode),
	)
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("report.language", &r.Language, defaultReportLanguage),
		stringFieldDefault("report.format", &r.Format, defaultReportFormat),
		boolFieldDefault("report.bom", &r.BOM, true),
	)
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
		fieldDefault{
			key:   "store.list_limit",
			need:  func() bool { return s.ListLimit == 0 },
			apply: func() { s.ListLimit = defaultStoreListLimit },
		},
	)
}

func (b *BatchConfig) normalize() {
	if b == nil {
		return
	}
	b.SequencesPath = strings.TrimSpace(b.SequencesPath)
	b.OutputPath = strings.TrimSpace(b.OutputPath)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
