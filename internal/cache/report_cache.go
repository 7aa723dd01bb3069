// Package cache 分析报告的 Redis 缓存
//
// 同一条日志短时间内重复打开时直接命中缓存，避免重复跑整条管线
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/config"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ReportCache 分析结果缓存管理器
type ReportCache struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewReportCache 创建缓存管理器
func NewReportCache(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *ReportCache {
	return &ReportCache{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// key 构建缓存键
//
// 预设与级别参与键构成：同一条日志换预设或级别重新分析时
// 不会命中上一次的缓存结果
func (c *ReportCache) key(logID, profileID, level string) string {
	return fmt.Sprintf("%s%s:%s:%s%s",
		c.config.Analysis.Cache.ReportKeyPrefix,
		logID,
		profileID,
		level,
		c.config.Analysis.Cache.ReportSuffix,
	)
}

// GetResult 读取某条日志在指定预设与级别下的缓存分析结果
func (c *ReportCache) GetResult(ctx context.Context, logID, profileID, level string) (*models.AnalysisResult, error) {
	val, err := c.redisClient.Get(ctx, c.key(logID, profileID, level)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("analysis result not cached for log: %s", logID)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis result: %w", err)
	}

	return &result, nil
}

// SetResult 写入某条日志在指定预设与级别下的分析结果（带 TTL）
func (c *ReportCache) SetResult(ctx context.Context, logID, profileID, level string, result *models.AnalysisResult) error {
	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	err = c.redisClient.Set(
		ctx,
		c.key(logID, profileID, level),
		jsonData,
		time.Duration(c.config.Analysis.Cache.ReportTTL)*time.Second,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set analysis result cache: %w", err)
	}

	c.logger.Debug("Analysis result cached",
		zap.String("log_id", logID),
		zap.Int("issues", len(result.Issues)),
	)
	return nil
}
