package models

import (
	"time"
)

// AnalysisReport 一次完整分析的持久化记录（对应 analysis_reports 表）
type AnalysisReport struct {
	ReportID        string    `json:"report_id" db:"report_id"`
	LogID           string    `json:"log_id" db:"log_id"`
	ProfileID       string    `json:"profile_id" db:"profile_id"`
	AnalysisLevel   string    `json:"analysis_level" db:"analysis_level"`
	IssueCount      int       `json:"issue_count" db:"issue_count"`
	Issues          string    `json:"issues" db:"issues"`                   // JSONB
	Recommendations string    `json:"recommendations" db:"recommendations"` // JSONB
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
