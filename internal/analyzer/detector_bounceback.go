package analyzer

import (
	"fmt"
	"math"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/google/uuid"
)

// 回弹检测参数
const (
	// 视为快速打杆的目标角速度下限（deg/s）
	bouncebackFlickDegS = 200.0
	// 视为摇杆回中的目标角速度上限（deg/s）
	bouncebackCenterDegS = 30.0
	// 打杆到回中的最大搜索时长（µs）
	bouncebackReleaseSearchUs = 300_000
	// 回中后观察反向过冲的时长（µs）
	bouncebackObserveUs = 250_000
	// 视为稳定的陀螺角速度上限（deg/s）
	bouncebackSettledDegS = 25.0
)

// bouncebackDetector 回弹：摇杆快速回中后陀螺反向过冲比例对比 bounceback_overshoot 阈值
//
// 逐事件检测：定位打杆→回中事件，在回中后的观察期内
// 取与打杆方向相反的陀螺峰值，过冲比例 = 反向峰值 / 打杆峰值
type bouncebackDetector struct{}

func (d *bouncebackDetector) name() string { return "bounceback" }

func (d *bouncebackDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	var issues []models.DetectedIssue
	for _, axis := range models.AllAxes() {
		issues = append(issues, d.detectAxis(t, th, axis)...)
	}
	return issues
}

func (d *bouncebackDetector) detectAxis(t *telemetry, th profile.Thresholds, axis models.Axis) []models.DetectedIssue {
	var issues []models.DetectedIssue
	frames := t.frames

	i := 0
	for i < len(frames) {
		if math.Abs(frames[i].Setpoint[axis]) < bouncebackFlickDegS {
			i++
			continue
		}

		// 搜索摇杆回中点，同时记录打杆峰值与方向
		flickPeak := math.Abs(frames[i].Setpoint[axis])
		dir := sign(frames[i].Setpoint[axis])
		release := -1
		for j := i + 1; j < len(frames) && frames[j].TimeUs-frames[i].TimeUs <= bouncebackReleaseSearchUs; j++ {
			if a := math.Abs(frames[j].Setpoint[axis]); a > flickPeak {
				flickPeak = a
				dir = sign(frames[j].Setpoint[axis])
			}
			if math.Abs(frames[j].Setpoint[axis]) <= bouncebackCenterDegS {
				release = j
				break
			}
		}
		if release < 0 {
			i++
			continue
		}

		// 观察期内的反向过冲峰值
		overshootDegS := 0.0
		peakIdx := release
		end := release
		for k := release; k < len(frames) && frames[k].TimeUs-frames[release].TimeUs <= bouncebackObserveUs; k++ {
			if over := -dir * frames[k].Gyro[axis]; over > overshootDegS {
				overshootDegS = over
				peakIdx = k
			}
			end = k
		}

		ratio := 0.0
		if flickPeak > 0 {
			ratio = overshootDegS / flickPeak
		}
		if sev, ok := severityFor(ratio, th.BouncebackOvershoot); ok {
			// 稳定时刻：峰值之后陀螺首次回落到稳定带内
			settleIdx := end
			for s := peakIdx; s <= end; s++ {
				if math.Abs(frames[s].Gyro[axis]) < bouncebackSettledDegS {
					settleIdx = s
					break
				}
			}
			settlingMs := float64(frames[settleIdx].TimeUs-frames[release].TimeUs) / 1000

			issues = append(issues, models.DetectedIssue{
				ID:         uuid.New().String(),
				Type:       models.IssueBounceback,
				Axis:       axis,
				Severity:   sev,
				Confidence: confidenceFor(ratio / th.BouncebackOvershoot),
				TimeRange: models.TimeRange{
					StartUs: frames[release].TimeUs,
					EndUs:   frames[settleIdx].TimeUs,
				},
				Metrics: models.Metrics{
					Overshoot:    floatPtr(ratio),
					SettlingTime: floatPtr(settlingMs),
					PeakTime:     floatPtr(float64(frames[peakIdx].TimeUs)),
				},
				Description: fmt.Sprintf("Bounceback after stick release on %s (%.0f%% overshoot)",
					axis, ratio*100),
			})
		}

		// 跳过观察期，避免同一事件重复上报
		i = end + 1
	}
	return issues
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
