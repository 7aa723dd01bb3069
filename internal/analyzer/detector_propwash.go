package analyzer

import (
	"fmt"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/google/uuid"
)

// 桨洗检测参数
const (
	// 视为收油门的油门上限
	propwashLowThrottle = 0.35
	// 收油门前需要达到过的油门下限
	propwashHighThrottle = 0.6
	// 回看窗口：在该时长内出现过高油门才算一次收油（µs）
	propwashLookbackUs = 500_000
	// 收油后评估振荡的时长（µs）
	propwashObserveUs = 400_000
	// 桨洗振荡的典型频段（Hz）
	propwashBandMinHz = 20
	propwashBandMaxHz = 100
)

// propwashDetector 桨洗：收油门后陀螺低频振荡幅值对比 propwash_amplitude 阈值
//
// 逐事件检测：油门从高位快速回落后，飞行器穿过自身尾流，
// 表现为低频段的陀螺振荡
type propwashDetector struct{}

func (d *propwashDetector) name() string { return "propwash" }

func (d *propwashDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	var issues []models.DetectedIssue
	for _, axis := range models.AllAxes() {
		issues = append(issues, d.detectAxis(t, th, axis)...)
	}
	return issues
}

func (d *propwashDetector) detectAxis(t *telemetry, th profile.Thresholds, axis models.Axis) []models.DetectedIssue {
	var issues []models.DetectedIssue
	frames := t.frames

	i := 0
	for i < len(frames) {
		if frames[i].Throttle >= propwashLowThrottle || !d.sawHighThrottle(frames, i) {
			i++
			continue
		}

		// 收油后的观察段
		end := i
		var segment []float64
		for k := i; k < len(frames) && frames[k].TimeUs-frames[i].TimeUs <= propwashObserveUs; k++ {
			segment = append(segment, frames[k].Gyro[axis])
			end = k
		}
		if len(segment) < minWindowFrames {
			i = end + 1
			continue
		}

		res := residuals(segment)
		amp := rms(res)
		if sev, ok := severityFor(amp, th.PropwashAmplitude); ok {
			metrics := models.Metrics{Amplitude: floatPtr(amp)}
			freq, _ := dominantFrequency(res, t.sampleRate, propwashBandMinHz, propwashBandMaxHz)
			if freq > 0 {
				metrics.Frequency = floatPtr(freq)
			}

			issues = append(issues, models.DetectedIssue{
				ID:         uuid.New().String(),
				Type:       models.IssuePropwash,
				Axis:       axis,
				Severity:   sev,
				Confidence: confidenceFor(amp / th.PropwashAmplitude),
				TimeRange: models.TimeRange{
					StartUs: frames[i].TimeUs,
					EndUs:   frames[end].TimeUs,
				},
				Metrics: metrics,
				Description: fmt.Sprintf("Propwash oscillation on %s after throttle chop (%.1f deg/s)",
					axis, amp),
			})
		}

		i = end + 1
	}
	return issues
}

// sawHighThrottle 回看窗口内是否出现过高油门
func (d *propwashDetector) sawHighThrottle(frames []models.Frame, idx int) bool {
	for j := idx - 1; j >= 0 && frames[idx].TimeUs-frames[j].TimeUs <= propwashLookbackUs; j-- {
		if frames[j].Throttle >= propwashHighThrottle {
			return true
		}
	}
	return false
}
