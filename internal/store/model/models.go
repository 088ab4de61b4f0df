package model

import "gorm.io/datatypes"

// ReportModel 保存一次批量计算。摘要字段单独成列以便列表查询，明细记录存为 JSON。
type ReportModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	MinWeight     float64        `gorm:"column:min_weight"`
	MaxWeight     float64        `gorm:"column:max_weight"`
	MedianIndex   int            `gorm:"column:median_index"`
	Delta         float64        `gorm:"column:delta"`
	DeltaMode     string         `gorm:"column:delta_mode"`
	TerminalMode  string         `gorm:"column:terminal_mode"`
	TablesVersion int64          `gorm:"column:tables_version"`
	Sequences     int            `gorm:"column:sequences"`
	Successes     int            `gorm:"column:successes"`
	Failures      int            `gorm:"column:failures"`
	RecordsJSON   datatypes.JSON `gorm:"column:records_json;type:TEXT"`
	CreatedAtMs   int64          `gorm:"column:created_at_ms;index"`
}

func (ReportModel) TableName() string { return "reports" }
