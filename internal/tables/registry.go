// Package tables 在会话内加载并持有标定表与 k 值表的只读快照。
package tables

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vonfrey/internal/calibration"
	"vonfrey/internal/coefficient"
	"vonfrey/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// ErrConfiguration 标识输入文件缺失、格式错误或缺少必需列。
var ErrConfiguration = errors.New("configuration error")

// ConfigError 记录出错的文件路径。errors.Is(err, ErrConfiguration) 恒为真。
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrConfiguration, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// Options 描述表文件位置与对数模式。
type Options struct {
	CalibrationPath string
	CoefficientPath string
	LogMode         calibration.LogMode
}

// Snapshot 是一次加载得到的两张表，加载后不再修改，可在请求间共享。
type Snapshot struct {
	Version      int64
	LoadedAt     time.Time
	Calibration  *calibration.Table
	Coefficients *coefficient.Table
}

// Load 读取两张表。任何失败都包装为 *ConfigError。
func Load(opts Options) (Snapshot, error) {
	cal, err := calibration.LoadFile(opts.CalibrationPath, opts.LogMode)
	if err != nil {
		return Snapshot{}, &ConfigError{Path: opts.CalibrationPath, Err: err}
	}
	coef, err := coefficient.LoadFile(opts.CoefficientPath)
	if err != nil {
		return Snapshot{}, &ConfigError{Path: opts.CoefficientPath, Err: err}
	}
	return Snapshot{LoadedAt: time.Now(), Calibration: cal, Coefficients: coef}, nil
}

// ChangeListener 在重新加载成功后触发。
type ChangeListener func(Snapshot)

// Registry 持有当前快照。重载失败时保留旧快照。
type Registry struct {
	opts Options

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry 立即加载一次；失败即返回错误，不会得到半初始化的 Registry。
func NewRegistry(opts Options) (*Registry, error) {
	if strings.TrimSpace(opts.CalibrationPath) == "" || strings.TrimSpace(opts.CoefficientPath) == "" {
		return nil, &ConfigError{Path: "-", Err: errors.New("table paths cannot be empty")}
	}
	r := &Registry{opts: opts}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStaticRegistry 用已构建的表创建 Registry，不关联任何文件。
func NewStaticRegistry(cal *calibration.Table, coef *coefficient.Table) *Registry {
	return &Registry{snapshot: Snapshot{Version: 1, LoadedAt: time.Now(), Calibration: cal, Coefficients: coef}}
}

// Snapshot 返回当前快照。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Reload 重新读取两张表并替换快照。
func (r *Registry) Reload() error {
	snap, err := Load(r.opts)
	if err != nil {
		return err
	}
	r.mu.Lock()
	snap.Version = r.snapshot.Version + 1
	r.snapshot = snap
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.Unlock()

	logger.Infof("tables loaded v%d: %d fibers, %d k-values (%d invalid)",
		snap.Version, snap.Calibration.Len(), snap.Coefficients.Len(), snap.Coefficients.Invalid())
	if !snap.Calibration.Monotonic() {
		logger.Warnf("calibration weights are not increasing with index (%s)", r.opts.CalibrationPath)
	}
	if dups := snap.Coefficients.Duplicates(); len(dups) > 0 {
		logger.Warnf("k-value table has %d duplicate patterns, first occurrence kept", len(dups))
	}
	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}

// Watch 监听表文件所在目录，文件变化时重载，直到 ctx 取消。
func (r *Registry) Watch(ctx context.Context) error {
	if r.opts.CalibrationPath == "" {
		return fmt.Errorf("registry has no backing files")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range []string{r.opts.CalibrationPath, r.opts.CoefficientPath} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(evt.Name)] {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			if err := r.Reload(); err != nil {
				logger.Errorf("table reload failed, keeping v%d: %v", r.Snapshot().Version, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("table watcher: %v", err)
		}
	}
}
