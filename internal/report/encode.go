package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const utf8BOM = "\ufeff"

// Options 控制导出格式、表头语言以及是否写入 BOM（仅对 csv/tsv 生效）。
type Options struct {
	Format   Format
	Language Language
	BOM      bool
}

// Encode 将报告按 opts 写入 w。
func Encode(w io.Writer, rep *Report, opts Options) error {
	if rep == nil {
		return fmt.Errorf("nil report")
	}
	if opts.Language == "" {
		opts.Language = LangZH
	}
	switch opts.Format {
	case FormatCSV, "":
		return writeDelimited(w, rep, opts, ',')
	case FormatTSV:
		return writeDelimited(w, rep, opts, '\t')
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatHTML:
		return writeChart(w, rep, opts.Language)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

func writeDelimited(w io.Writer, rep *Report, opts Options, comma rune) error {
	if opts.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.WriteAll(rows(rep, opts.Language)); err != nil {
		return err
	}
	return cw.Error()
}
