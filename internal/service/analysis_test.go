package service

import (
	"context"
	"testing"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/config"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Analysis.ProfileID = "five_inch"
	cfg.Analysis.Level = "average"
	cfg.Analysis.Cache.ReportKeyPrefix = "blackbox:log:"
	cfg.Analysis.Cache.ReportSuffix = ":report"
	cfg.Analysis.Cache.ReportTTL = 3600
	return cfg
}

// noisyLog roll 轴带 ±15 deg/s 交替噪声的合成遥测
func noisyLog(n int) ([]models.Frame, models.LogMetadata) {
	frames := make([]models.Frame, n)
	for i := range frames {
		frames[i] = models.Frame{
			TimeUs:   int64(i) * 1000,
			Throttle: 0.5,
			Motor:    [4]float64{0.5, 0.5, 0.5, 0.5},
			VBat:     16.8,
		}
		if i%2 == 0 {
			frames[i].Gyro[models.AxisRoll] = 15
		} else {
			frames[i].Gyro[models.AxisRoll] = -15
		}
	}
	meta := models.LogMetadata{
		FirmwareVersion: "4.5.1",
		SampleRateHz:    1000,
		CellCount:       4,
		MotorCount:      4,
	}
	return frames, meta
}

func TestAnalyzeLog_PipelineNoExternalDeps(t *testing.T) {
	// 存储与缓存均关闭：纯内存管线
	svc, err := NewAnalysisService(testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	frames, meta := noisyLog(2000)
	result, err := svc.AnalyzeLog(context.Background(), frames, meta, AnalyzeOptions{LogID: "log-1"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Issues)

	// 全管线跑完后建议引用无悬空 id
	known := make(map[string]bool)
	for _, issue := range result.Issues {
		known[issue.ID] = true
	}
	for _, rec := range result.Recommendations {
		assert.True(t, known[rec.IssueID], "dangling primary reference %s", rec.IssueID)
		for _, id := range rec.RelatedIssueIDs {
			assert.True(t, known[id], "dangling related reference %s", id)
		}
	}
}

func TestAnalyzeLog_UnknownProfile(t *testing.T) {
	svc, err := NewAnalysisService(testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	frames, meta := noisyLog(100)
	_, err = svc.AnalyzeLog(context.Background(), frames, meta, AnalyzeOptions{ProfileID: "nonexistent"})
	assert.ErrorContains(t, err, "unknown quad profile")
}

func TestAnalyzeLog_LevelAffectsDetections(t *testing.T) {
	// expert 级别阈值更严，检出不少于 basic
	svc, err := NewAnalysisService(testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	frames, meta := noisyLog(2000)
	ctx := context.Background()

	basic, err := svc.AnalyzeLog(ctx, frames, meta, AnalyzeOptions{Level: profile.LevelBasic})
	require.NoError(t, err)
	expert, err := svc.AnalyzeLog(ctx, frames, meta, AnalyzeOptions{Level: profile.LevelExpert})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(expert.Issues), len(basic.Issues))
	assert.NotEmpty(t, expert.Issues)
}

func TestAnalyzeLog_CacheHit(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Analysis.Cache.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	svc, err := NewAnalysisService(cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	frames, meta := noisyLog(2000)
	ctx := context.Background()

	first, err := svc.AnalyzeLog(ctx, frames, meta, AnalyzeOptions{LogID: "log-1"})
	require.NoError(t, err)
	require.True(t, mr.Exists("blackbox:log:log-1:five_inch:average:report"))

	// 第二次命中缓存：问题 id 与第一次完全一致（重新分析会产生新 id）
	second, err := svc.AnalyzeLog(ctx, frames, meta, AnalyzeOptions{LogID: "log-1"})
	require.NoError(t, err)
	require.Equal(t, len(first.Issues), len(second.Issues))
	for i := range first.Issues {
		assert.Equal(t, first.Issues[i].ID, second.Issues[i].ID)
	}
}

func TestAnalyzeLog_LevelChangeNotServedStaleCache(t *testing.T) {
	// basic 级别阈值宽松到对该日志零检出；缓存该空结果后，
	// 同一日志换 expert 级别必须重新分析而不是命中 basic 的缓存
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Analysis.Cache.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	svc, err := NewAnalysisService(cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	frames, meta := noisyLog(2000)
	ctx := context.Background()

	basic, err := svc.AnalyzeLog(ctx, frames, meta, AnalyzeOptions{LogID: "log-1", Level: profile.LevelBasic})
	require.NoError(t, err)
	assert.Empty(t, basic.Issues)
	require.True(t, mr.Exists("blackbox:log:log-1:five_inch:basic:report"))

	expert, err := svc.AnalyzeLog(ctx, frames, meta, AnalyzeOptions{LogID: "log-1", Level: profile.LevelExpert})
	require.NoError(t, err)
	assert.NotEmpty(t, expert.Issues)
	assert.True(t, mr.Exists("blackbox:log:log-1:five_inch:expert:report"))
}

func TestAnalyzeLog_ProfileChangeNotServedStaleCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Analysis.Cache.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	svc, err := NewAnalysisService(cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	frames, meta := noisyLog(2000)
	ctx := context.Background()

	first, err := svc.AnalyzeLog(ctx, frames, meta, AnalyzeOptions{LogID: "log-1"})
	require.NoError(t, err)

	// 换预设重新分析：产生独立缓存键与新的问题 id
	second, err := svc.AnalyzeLog(ctx, frames, meta, AnalyzeOptions{LogID: "log-1", ProfileID: "whoop"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("blackbox:log:log-1:five_inch:average:report"))
	assert.True(t, mr.Exists("blackbox:log:log-1:whoop:average:report"))

	if len(first.Issues) > 0 && len(second.Issues) > 0 {
		assert.NotEqual(t, first.Issues[0].ID, second.Issues[0].ID)
	}
}

func TestAnalyzeLog_EmptyLogID_SkipsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Analysis.Cache.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	svc, err := NewAnalysisService(cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	frames, meta := noisyLog(2000)
	_, err = svc.AnalyzeLog(context.Background(), frames, meta, AnalyzeOptions{})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}
