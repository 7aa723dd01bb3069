package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/analyzer"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/cache"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/config"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/merger"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// AnalysisService 分析服务（整合各层）
//
// 管线本身是同步的纯函数变换：规则引擎 → 时间去重 → 跨轴频率合并；
// 持久化与缓存为可选外围，按配置接入
type AnalysisService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client

	analyzer       *analyzer.Analyzer
	reportsRepo    *repository.AnalysisReportsRepository
	reportCache    *cache.ReportCache
	customProfiles []profile.QuadProfile
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(cfg *config.Config, logger *zap.Logger) (*AnalysisService, error) {
	s := &AnalysisService{
		config:   cfg,
		logger:   logger,
		analyzer: analyzer.New(logger),
	}

	// 1. 加载自定义预设（可选）
	if cfg.Analysis.ProfilesFile != "" {
		custom, err := profile.LoadFile(cfg.Analysis.ProfilesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load custom profiles: %w", err)
		}
		s.customProfiles = custom
		logger.Info("Custom profiles loaded",
			zap.String("file", cfg.Analysis.ProfilesFile),
			zap.Int("profiles", len(custom)),
		)
	}

	// 2. 连接数据库（可选）
	if cfg.Analysis.Storage.Enabled {
		db, err := sql.Open("postgres", buildDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		s.db = db
		s.reportsRepo = repository.NewAnalysisReportsRepository(db, logger)
	}

	// 3. 连接 Redis（可选）
	if cfg.Analysis.Cache.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx := context.Background()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		s.redisClient = redisClient
		s.reportCache = cache.NewReportCache(cfg, redisClient, logger)
	}

	return s, nil
}

// Stop 释放外部连接
func (s *AnalysisService) Stop() {
	if s.db != nil {
		s.db.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
}

// AnalyzeOptions 单次分析的选项，零值回退到配置默认
type AnalyzeOptions struct {
	LogID     string // 日志标识，用于缓存键与持久化；为空时跳过缓存
	ProfileID string
	Level     profile.AnalysisLevel
}

// AnalyzeLog 对一次解码后的遥测快照跑完整管线
//
// 流程：预设解析 → 级别缩放 → 规则引擎 → 时间去重（改写建议引用）
// → 跨轴频率合并（改写建议引用）；输出保证无悬空 id 引用。
// 输入快照只读，重复调用互不影响，可并发分析不同日志
func (s *AnalysisService) AnalyzeLog(ctx context.Context, frames []models.Frame, meta models.LogMetadata, opts AnalyzeOptions) (*models.AnalysisResult, error) {
	profileID := opts.ProfileID
	if profileID == "" {
		profileID = s.config.Analysis.ProfileID
	}
	prof, ok := profile.Resolve(profileID, s.customProfiles)
	if !ok {
		return nil, fmt.Errorf("unknown quad profile: %s", profileID)
	}

	level := opts.Level
	if level == "" {
		level = profile.AnalysisLevel(s.config.Analysis.Level)
	}
	scaled := prof.ScaledForLevel(level)

	// 缓存按 (日志, 预设, 级别) 区分，命中则直接返回；
	// 换预设或级别重新调用即重新分析
	if s.reportCache != nil && opts.LogID != "" {
		if cached, err := s.reportCache.GetResult(ctx, opts.LogID, prof.ID, string(level)); err == nil {
			s.logger.Info("Analysis result served from cache",
				zap.String("log_id", opts.LogID),
				zap.String("profile", prof.ID),
				zap.String("level", string(level)),
			)
			return cached, nil
		}
	}

	// 规则引擎
	issues, recommendations := s.analyzer.Analyze(frames, meta, &scaled)

	// 时间去重
	deduped, remap := merger.Deduplicate(issues)
	recommendations = merger.RemapRecommendations(recommendations, remap)

	// 跨轴频率合并
	finalIssues, finalRecs := merger.MergeFrequency(deduped, recommendations)

	result := &models.AnalysisResult{
		Issues:          finalIssues,
		Recommendations: finalRecs,
	}

	s.logger.Info("Log analyzed",
		zap.String("log_id", opts.LogID),
		zap.String("profile", prof.ID),
		zap.String("level", string(level)),
		zap.Int("raw_issues", len(issues)),
		zap.Int("final_issues", len(finalIssues)),
	)

	// 缓存与持久化尽力而为，失败不影响分析结果
	if s.reportCache != nil && opts.LogID != "" {
		if err := s.reportCache.SetResult(ctx, opts.LogID, prof.ID, string(level), result); err != nil {
			s.logger.Error("Failed to cache analysis result",
				zap.String("log_id", opts.LogID),
				zap.Error(err),
			)
		}
	}
	if s.reportsRepo != nil && opts.LogID != "" {
		if err := s.persistReport(ctx, prof.ID, string(level), opts.LogID, result); err != nil {
			s.logger.Error("Failed to persist analysis report",
				zap.String("log_id", opts.LogID),
				zap.Error(err),
			)
		}
	}

	return result, nil
}

// persistReport 将分析结果序列化后写入仓库
func (s *AnalysisService) persistReport(ctx context.Context, profileID, level, logID string, result *models.AnalysisResult) error {
	issuesJSON, err := json.Marshal(result.Issues)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}
	recsJSON, err := json.Marshal(result.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	report := &models.AnalysisReport{
		ReportID:        uuid.New().String(),
		LogID:           logID,
		ProfileID:       profileID,
		AnalysisLevel:   level,
		IssueCount:      len(result.Issues),
		Issues:          string(issuesJSON),
		Recommendations: string(recsJSON),
		CreatedAt:       time.Now(),
	}
	return s.reportsRepo.CreateAnalysisReport(ctx, report)
}

// buildDSN 构建 PostgreSQL 连接串
func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)
}
