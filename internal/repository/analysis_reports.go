package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"

	"go.uber.org/zap"
)

// AnalysisReportsRepository 分析报告仓库
type AnalysisReportsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnalysisReportsRepository 创建分析报告仓库
func NewAnalysisReportsRepository(db *sql.DB, logger *zap.Logger) *AnalysisReportsRepository {
	return &AnalysisReportsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAnalysisReport 写入一条分析报告
func (r *AnalysisReportsRepository) CreateAnalysisReport(ctx context.Context, report *models.AnalysisReport) error {
	if report.ReportID == "" {
		return fmt.Errorf("report_id is required")
	}
	if report.LogID == "" {
		return fmt.Errorf("log_id is required")
	}

	query := `
		INSERT INTO analysis_reports (
			report_id,
			log_id,
			profile_id,
			analysis_level,
			issue_count,
			issues,
			recommendations,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		report.ReportID,
		report.LogID,
		report.ProfileID,
		report.AnalysisLevel,
		report.IssueCount,
		report.Issues,
		report.Recommendations,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis report: %w", err)
	}

	r.logger.Debug("Analysis report created",
		zap.String("report_id", report.ReportID),
		zap.String("log_id", report.LogID),
	)
	return nil
}

// GetAnalysisReport 根据 report_id 获取单条分析报告
func (r *AnalysisReportsRepository) GetAnalysisReport(ctx context.Context, reportID string) (*models.AnalysisReport, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report_id is required")
	}

	query := `
		SELECT
			report_id,
			log_id,
			profile_id,
			analysis_level,
			issue_count,
			issues,
			recommendations,
			created_at
		FROM analysis_reports
		WHERE report_id = $1
	`

	var report models.AnalysisReport
	err := r.db.QueryRowContext(ctx, query, reportID).Scan(
		&report.ReportID,
		&report.LogID,
		&report.ProfileID,
		&report.AnalysisLevel,
		&report.IssueCount,
		&report.Issues,
		&report.Recommendations,
		&report.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis report not found: %s", reportID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis report: %w", err)
	}

	return &report, nil
}

// GetLatestReportForLog 获取某条日志最近一次的分析报告
func (r *AnalysisReportsRepository) GetLatestReportForLog(ctx context.Context, logID string) (*models.AnalysisReport, error) {
	if logID == "" {
		return nil, fmt.Errorf("log_id is required")
	}

	query := `
		SELECT
			report_id,
			log_id,
			profile_id,
			analysis_level,
			issue_count,
			issues,
			recommendations,
			created_at
		FROM analysis_reports
		WHERE log_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var report models.AnalysisReport
	err := r.db.QueryRowContext(ctx, query, logID).Scan(
		&report.ReportID,
		&report.LogID,
		&report.ProfileID,
		&report.AnalysisLevel,
		&report.IssueCount,
		&report.Issues,
		&report.Recommendations,
		&report.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no analysis report for log: %s", logID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis report: %w", err)
	}

	return &report, nil
}

// ListAnalysisReports 按时间倒序列出分析报告
func (r *AnalysisReportsRepository) ListAnalysisReports(ctx context.Context, limit int) ([]models.AnalysisReport, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			report_id,
			log_id,
			profile_id,
			analysis_level,
			issue_count,
			issues,
			recommendations,
			created_at
		FROM analysis_reports
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis reports: %w", err)
	}
	defer rows.Close()

	var reports []models.AnalysisReport
	for rows.Next() {
		var report models.AnalysisReport
		if err := rows.Scan(
			&report.ReportID,
			&report.LogID,
			&report.ProfileID,
			&report.AnalysisLevel,
			&report.IssueCount,
			&report.Issues,
			&report.Recommendations,
			&report.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis reports: %w", err)
	}

	return reports, nil
}
