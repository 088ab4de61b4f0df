package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vonfrey/internal/config"
	"vonfrey/internal/logger"
	"vonfrey/internal/pkg/text"
	"vonfrey/internal/report"
	"vonfrey/internal/service"

	"github.com/dustin/go-humanize"
)

// BatchRunner 读取序列文件（每行一条），计算后导出报告。
type BatchRunner struct {
	Calculator *service.Calculator
	Config     config.BatchConfig
	Export     report.Options
	Save       bool
	// Stdout 在未配置 OutputPath 时接收导出内容。
	Stdout io.Writer
}

// Run 执行一次批量计算。范围错误或文件错误返回 error，单条序列失败写入报告。
func (r *BatchRunner) Run(ctx context.Context) (*report.Report, error) {
	raw, err := os.ReadFile(r.Config.SequencesPath)
	if err != nil {
		return nil, fmt.Errorf("read sequences: %w", err)
	}
	logger.Infof("批量任务: %s (%s)", r.Config.SequencesPath, humanize.Bytes(uint64(len(raw))))

	rep, err := r.Calculator.CalculateText(ctx, r.Config.MinWeight, r.Config.MaxWeight, string(raw))
	if err != nil {
		return nil, err
	}
	if r.Save {
		if err := r.Calculator.Save(ctx, rep); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := report.Encode(&buf, rep, r.Export); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := r.write(buf.Bytes()); err != nil {
		return nil, err
	}
	logger.Infof("批量任务完成: 成功 %d, 失败 %d", rep.Successes, rep.Failures)
	for i, rec := range rep.Records {
		if !rec.OK() {
			logger.Debugf("第 %d 条 %q 计算失败: %v", i+1, text.Truncate(rec.Raw, 40), rec.Err())
		}
	}
	return rep, nil
}

func (r *BatchRunner) write(data []byte) error {
	path := r.Config.OutputPath
	if path == "" {
		out := r.Stdout
		if out == nil {
			out = os.Stdout
		}
		_, err := out.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Infof("报告已写入 %s (%s, %s)", path, r.Export.Format, humanize.Bytes(uint64(len(data))))
	return nil
}
