package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Tables.validate(); err != nil {
		return err
	}
	if err := c.Estimate.validate(); err != nil {
		return err
	}
	if err := c.Report.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Batch.validate(); err != nil {
		return err
	}
	if !c.App.HTTPEnabled && !c.Batch.Enabled() {
		return fmt.Errorf("nothing to run: enable app.http_enabled or set batch.sequences_path")
	}
	return nil
}

func (a *AppConfig) validate() error {
	if !oneOf(a.LogFormat, "text", "json", "tint") {
		return fmt.Errorf("app.log_format must be text|json|tint, got %s", a.LogFormat)
	}
	if a.HTTPEnabled && strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty when http is enabled")
	}
	return nil
}

func (t *TablesConfig) validate() error {
	if t.CalibrationPath == "" {
		return fmt.Errorf("tables.calibration_path cannot be empty")
	}
	if t.CoefficientPath == "" {
		return fmt.Errorf("tables.coefficient_path cannot be empty")
	}
	if !oneOf(t.LogMode, "canonical", "raw") {
		return fmt.Errorf("tables.log_mode must be canonical|raw, got %s", t.LogMode)
	}
	return nil
}

func (e *EstimateConfig) validate() error {
	if !oneOf(strings.ToLower(e.DeltaMode), "count", "span") {
		return fmt.Errorf("estimate.delta_mode must be count|span, got %s", e.DeltaMode)
	}
	if !oneOf(strings.ToLower(e.TerminalMode), "second_to_last", "full") {
		return fmt.Errorf("estimate.terminal_mode must be second_to_last|full, got %s", e.TerminalMode)
	}
	return nil
}

func (r *ReportConfig) validate() error {
	if !oneOf(r.Language, "zh", "en") {
		return fmt.Errorf("report.language must be zh|en, got %s", r.Language)
	}
	if !oneOf(r.Format, "csv", "tsv", "json", "yaml", "html") {
		return fmt.Errorf("report.format must be csv|tsv|json|yaml|html, got %s", r.Format)
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("store.path cannot be empty when store is enabled")
	}
	if s.ListLimit <= 0 {
		return fmt.Errorf("store.list_limit must be > 0")
	}
	return nil
}

func (b *BatchConfig) validate() error {
	if !b.Enabled() {
		return nil
	}
	if b.MinWeight <= 0 || b.MaxWeight <= 0 {
		return fmt.Errorf("batch.min_weight and batch.max_weight must be > 0")
	}
	if b.MinWeight > b.MaxWeight {
		return fmt.Errorf("batch.min_weight (%v) must be <= batch.max_weight (%v)", b.MinWeight, b.MaxWeight)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
