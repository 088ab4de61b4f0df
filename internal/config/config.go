package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置并应用默认值与校验。
//
// include 列出的文件先于引用它的文件合并，后合并的键覆盖先前的值。
// 只有所有文件中都未出现的键才会取默认值。相对路径（表文件、报告库、批量输入输出、日志）
// 以 path 所在目录为基准，与进程工作目录无关。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &includeWalker{done: map[string]bool{}, active: map[string]bool{}, settings: map[string]map[string]any{}}
	if err := w.visit(root); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range w.order {
		if err := v.MergeConfigMap(w.settings[file]); err != nil {
			return nil, fmt.Errorf("merging config file failed (%s): %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	keys := make(keySet)
	markKeys("", v.AllSettings(), keys)
	cfg.applyDefaults(keys)
	cfg.resolvePaths(filepath.Dir(root))
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// includeWalker 按深度优先收集配置文件，order 中被引用的文件排在引用者之前。
type includeWalker struct {
	done     map[string]bool
	active   map[string]bool
	order    []string
	settings map[string]map[string]any
}

func (w *includeWalker) visit(path string) error {
	path = filepath.Clean(path)
	if w.active[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if w.done[path] {
		return nil
	}
	w.active[path] = true

	file := viper.New()
	file.SetConfigFile(path)
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	for _, inc := range file.GetStringSlice("include") {
		inc = strings.TrimSpace(inc)
		if inc == "" {
			continue
		}
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}

	delete(w.active, path)
	w.done[path] = true
	w.settings[path] = file.AllSettings()
	w.order = append(w.order, path)
	return nil
}

// markKeys 记录出现过的叶子键（如 "store.enabled"），用于区分显式 false/0 与未设置。
func markKeys(prefix string, node any, dest keySet) {
	m, ok := node.(map[string]any)
	if !ok {
		dest.mark(prefix)
		return
	}
	for k, child := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		markKeys(key, child, dest)
	}
}

// resolvePaths 将相对路径改写为相对 base 的路径。
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.App.LogPath,
		&c.Tables.CalibrationPath,
		&c.Tables.CoefficientPath,
		&c.Store.Path,
		&c.Batch.SequencesPath,
		&c.Batch.OutputPath,
	} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(base, *p)
	}
}
