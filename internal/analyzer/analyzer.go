// Package analyzer 规则引擎：按轴、按问题类型对遥测数据独立检测
//
// 每个检测器由遥测计算标量指标并与缩放后预设的对应阈值做分带比较，
// 检测器之间无共享状态、顺序无关；引擎将全部输出合并为
// 单次调用的问题列表与建议列表
package analyzer

import (
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"go.uber.org/zap"
)

// 严重程度分带：超过阈值为 low，更高倍数依次升档
const (
	severityMediumRatio = 1.5
	severityHighRatio   = 2.5
)

// detector 单个检测器：对遥测独立求值，弃权或产出若干问题
type detector interface {
	name() string
	detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue
}

// Analyzer 规则引擎
type Analyzer struct {
	logger    *zap.Logger
	detectors []detector
}

// New 创建规则引擎
func New(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		logger: logger,
		detectors: []detector{
			&electricalNoiseDetector{},
			&frameResonanceDetector{},
			&bearingNoiseDetector{},
			&dtermNoiseDetector{},
			&trackingErrorDetector{},
			&bouncebackDetector{},
			&propwashDetector{},
			&motorHealthDetector{},
			&escDesyncDetector{},
			&voltageSagDetector{},
			&cgOffsetDetector{},
		},
	}
}

// Analyze 对一次遥测快照求值，产出原始问题与建议列表
//
// prof 为 nil 时使用内置默认预设（five_inch）；
// 分析级别缩放由调用方通过 profile.ScaledForLevel 预先完成。
// frames/meta 视为只读，引擎不修改输入
func (a *Analyzer) Analyze(frames []models.Frame, meta models.LogMetadata, prof *profile.QuadProfile) ([]models.DetectedIssue, []models.Recommendation) {
	active := profile.Default()
	if prof != nil {
		active = *prof
	}

	if len(frames) == 0 {
		return nil, nil
	}

	t := newTelemetry(frames, meta)
	var issues []models.DetectedIssue
	for _, d := range a.detectors {
		found := d.detect(t, active.Thresholds)
		if len(found) > 0 {
			a.logger.Debug("Detector fired",
				zap.String("detector", d.name()),
				zap.Int("issues", len(found)),
			)
		}
		issues = append(issues, found...)
	}

	recommendations := buildRecommendations(issues)

	a.logger.Info("Analysis completed",
		zap.String("profile", active.ID),
		zap.Int("frames", len(frames)),
		zap.Int("issues", len(issues)),
		zap.Int("recommendations", len(recommendations)),
	)
	return issues, recommendations
}

// severityFor 指标与阈值的分带比较
//
// 指标低于阈值时弃权；超过阈值按固定倍数分带，
// 保证阈值越严格（越小）检出集合越大且严重程度不降
func severityFor(value, threshold float64) (models.Severity, bool) {
	if threshold <= 0 || value < threshold {
		return 0, false
	}
	ratio := value / threshold
	switch {
	case ratio >= severityHighRatio:
		return models.SeverityHigh, true
	case ratio >= severityMediumRatio:
		return models.SeverityMedium, true
	default:
		return models.SeverityLow, true
	}
}

// confidenceFor 由超阈比例推导置信度，单调且截断在 [0.1, 0.95]
func confidenceFor(ratio float64) float64 {
	conf := 0.35 + 0.15*(ratio-1)
	if conf > 0.95 {
		return 0.95
	}
	if conf < 0.1 {
		return 0.1
	}
	return clamp01(conf)
}
