package apihttp

import "vonfrey/internal/report"

// EstimateRequest 是 POST /api/estimate 的请求体。sequences 为多行文本，
// lines 为逐条列表，两者同时给出时按 sequences 在前拼接。
type EstimateRequest struct {
	MinWeight    float64  `json:"min_weight" binding:"required,gt=0"`
	MaxWeight    float64  `json:"max_weight" binding:"required,gt=0"`
	Sequences    string   `json:"sequences"`
	Lines        []string `json:"lines"`
	DeltaMode    string   `json:"delta_mode"`
	TerminalMode string   `json:"terminal_mode"`
	Save         bool     `json:"save"`
}

// EstimateResponse 在报告外附带是否已保存。
type EstimateResponse struct {
	*report.Report
	Saved bool `json:"saved"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
