package analyzer

import (
	"fmt"
	"math"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/google/uuid"
)

// 电机检测参数
const (
	// 视为饱和的电机输出下限
	motorSaturatedOutput = 0.98
	// 视为高油门的油门下限（desync 仅在高油门下评估）
	desyncHighThrottle = 0.6
	// 相邻两帧间视为异常跳变的电机输出差
	desyncStepDelta = 0.35
)

// motorHealthDetector 电机健康：窗口内最差电机的饱和时间占比对比 motor_saturation 阈值
//
// 描述中带出具体电机编号（1 起），便于定位硬件
type motorHealthDetector struct{}

func (d *motorHealthDetector) name() string { return "motor_health" }

func (d *motorHealthDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	var issues []models.DetectedIssue
	motors := t.motorCount()

	for _, w := range t.windows {
		frames := w.Frames(t)

		worstMotor, worstSat := 0, 0.0
		for m := 0; m < motors; m++ {
			saturated := 0
			for _, f := range frames {
				if f.Motor[m] >= motorSaturatedOutput {
					saturated++
				}
			}
			if sat := float64(saturated) / float64(len(frames)); sat > worstSat {
				worstMotor, worstSat = m, sat
			}
		}

		sev, ok := severityFor(worstSat, th.MotorSaturation)
		if !ok {
			continue
		}

		issues = append(issues, models.DetectedIssue{
			ID:         uuid.New().String(),
			Type:       models.IssueMotorHealth,
			Axis:       t.dominantDisturbanceAxis(w),
			Severity:   sev,
			Confidence: confidenceFor(worstSat / th.MotorSaturation),
			TimeRange:  models.TimeRange{StartUs: w.StartUs, EndUs: w.EndUs},
			Metrics: models.Metrics{
				MotorSaturation: floatPtr(worstSat),
			},
			Description: fmt.Sprintf("Motor %d saturated %.0f%% of the window",
				worstMotor+1, worstSat*100),
		})
	}
	return issues
}

// escDesyncDetector ESC 失步：高油门下电机输出单帧跳变频率对比 high_throttle_oscillation 阈值
type escDesyncDetector struct{}

func (d *escDesyncDetector) name() string { return "esc_desync" }

func (d *escDesyncDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	var issues []models.DetectedIssue
	motors := t.motorCount()

	for _, w := range t.windows {
		frames := w.Frames(t)

		steps := 0
		maxDelta := 0.0
		for n := 1; n < len(frames); n++ {
			if frames[n].Throttle < desyncHighThrottle {
				continue
			}
			for m := 0; m < motors; m++ {
				delta := math.Abs(frames[n].Motor[m] - frames[n-1].Motor[m])
				if delta >= desyncStepDelta {
					steps++
					if delta > maxDelta {
						maxDelta = delta
					}
					break
				}
			}
		}

		rate := float64(steps) / float64(len(frames))
		sev, ok := severityFor(rate, th.HighThrottleOscillation)
		if !ok {
			continue
		}

		issues = append(issues, models.DetectedIssue{
			ID:         uuid.New().String(),
			Type:       models.IssueEscDesync,
			Axis:       t.dominantDisturbanceAxis(w),
			Severity:   sev,
			Confidence: confidenceFor(rate / th.HighThrottleOscillation),
			TimeRange:  models.TimeRange{StartUs: w.StartUs, EndUs: w.EndUs},
			Metrics: models.Metrics{
				Amplitude: floatPtr(maxDelta),
			},
			Description: fmt.Sprintf("Possible ESC desync under high throttle (%.1f%% of frames stepping)",
				rate*100),
		})
	}
	return issues
}
