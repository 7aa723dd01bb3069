package analyzer

import (
	"fmt"
	"math"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/google/uuid"
)

// Betaflight quad-X 电机布局（下标 0 起）：
// 0 = 右后, 1 = 右前, 2 = 左后, 3 = 左前
var (
	motorsLeft  = [2]int{2, 3}
	motorsRight = [2]int{0, 1}
	motorsFront = [2]int{1, 3}
	motorsRear  = [2]int{0, 2}
)

// cgOffsetDetector 重心偏移：全程左右 / 前后电机平均输出差对比 wobble_amplitude 阈值
//
// 重心不居中时对应侧电机需要持续多出力补偿，
// 表现为 roll（左右）或 pitch（前后）方向的持续输出不平衡
type cgOffsetDetector struct{}

func (d *cgOffsetDetector) name() string { return "cg_offset" }

func (d *cgOffsetDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	if len(t.frames) == 0 || t.motorCount() < 4 {
		return nil
	}

	span := models.TimeRange{
		StartUs: t.frames[0].TimeUs,
		EndUs:   t.frames[len(t.frames)-1].TimeUs,
	}

	var issues []models.DetectedIssue
	rollImb := math.Abs(d.pairMean(t, motorsLeft) - d.pairMean(t, motorsRight))
	if issue, ok := d.buildIssue(models.AxisRoll, rollImb, th.WobbleAmplitude, span, "left/right"); ok {
		issues = append(issues, issue)
	}

	pitchImb := math.Abs(d.pairMean(t, motorsFront) - d.pairMean(t, motorsRear))
	if issue, ok := d.buildIssue(models.AxisPitch, pitchImb, th.WobbleAmplitude, span, "front/rear"); ok {
		issues = append(issues, issue)
	}
	return issues
}

// pairMean 一对电机在全程上的平均输出
func (d *cgOffsetDetector) pairMean(t *telemetry, pair [2]int) float64 {
	sum := 0.0
	for _, f := range t.frames {
		sum += f.Motor[pair[0]] + f.Motor[pair[1]]
	}
	return sum / float64(2*len(t.frames))
}

func (d *cgOffsetDetector) buildIssue(axis models.Axis, imbalance, threshold float64, span models.TimeRange, side string) (models.DetectedIssue, bool) {
	sev, ok := severityFor(imbalance, threshold)
	if !ok {
		return models.DetectedIssue{}, false
	}

	return models.DetectedIssue{
		ID:         uuid.New().String(),
		Type:       models.IssueCGOffset,
		Axis:       axis,
		Severity:   sev,
		Confidence: confidenceFor(imbalance / threshold),
		TimeRange:  span,
		Metrics: models.Metrics{
			Amplitude: floatPtr(imbalance),
		},
		Description: fmt.Sprintf("Possible CG offset: %s motor imbalance %.0f%%",
			side, imbalance*100),
	}, true
}
