// Package tsv reads tab-separated tables with a header row.
package tsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const bom = "\ufeff"

// ErrMissingColumn 表头中找不到任何候选列名。
var ErrMissingColumn = errors.New("missing column")

// Header 保存规范化后的列名及其位置。
type Header struct {
	names []string
	pos   map[string]int
}

// Lookup 按候选名顺序查找列位置，名称比较忽略大小写与首尾空白。
func (h Header) Lookup(aliases ...string) (int, bool) {
	for _, alias := range aliases {
		if idx, ok := h.pos[normalizeName(alias)]; ok {
			return idx, true
		}
	}
	return -1, false
}

// Require 与 Lookup 相同，但缺列时返回 ErrMissingColumn。
func (h Header) Require(aliases ...string) (int, error) {
	if idx, ok := h.Lookup(aliases...); ok {
		return idx, nil
	}
	return -1, fmt.Errorf("%w: need one of %s (have %s)", ErrMissingColumn,
		strings.Join(aliases, "/"), strings.Join(h.names, ","))
}

// Row 是一行数据，Line 为源文件中的行号（从 1 开始，含表头）。
type Row struct {
	Line   int
	Fields []string
}

// Cell 返回去除首尾空白后的单元格，越界时返回空串。
func (r Row) Cell(idx int) string {
	if idx < 0 || idx >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[idx])
}

// Read 读取整张表。空行被跳过，UTF-8 BOM 与 CRLF 均可接受。
func Read(r io.Reader) (Header, []Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	first, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, nil, fmt.Errorf("empty table")
		}
		return Header{}, nil, err
	}
	header := Header{names: make([]string, len(first)), pos: make(map[string]int, len(first))}
	for i, name := range first {
		if i == 0 {
			name = strings.TrimPrefix(name, bom)
		}
		name = strings.TrimSpace(name)
		header.names[i] = name
		key := normalizeName(name)
		if _, dup := header.pos[key]; !dup && key != "" {
			header.pos[key] = i
		}
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Header{}, nil, err
		}
		line, _ := reader.FieldPos(0)
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{Line: line, Fields: rec})
	}
	return header, rows, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
