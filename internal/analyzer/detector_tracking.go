package analyzer

import (
	"fmt"
	"math"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/google/uuid"
)

// 摇杆活动判定：窗口内目标角速度峰值低于该值视为静态窗口，不评估跟踪误差
const trackingActiveStickDegS = 50.0

// trackingErrorDetector 跟踪误差：活动窗口内 RMS(setpoint − gyro) 对比 tracking_error 阈值
type trackingErrorDetector struct{}

func (d *trackingErrorDetector) name() string { return "tracking_error" }

func (d *trackingErrorDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	var issues []models.DetectedIssue
	for _, axis := range models.AllAxes() {
		for _, w := range t.windows {
			setpoint := t.samples(w, func(f models.Frame) float64 { return f.Setpoint[axis] })
			if peakAbs(setpoint) < trackingActiveStickDegS {
				continue
			}

			gyro := t.gyroSamples(w, axis)
			errs := make([]float64, len(setpoint))
			for i := range setpoint {
				errs[i] = setpoint[i] - gyro[i]
			}
			rmsErr := rms(errs)
			sev, ok := severityFor(rmsErr, th.TrackingError)
			if !ok {
				continue
			}

			// 峰值误差时刻作为显式峰值时间
			peakIdx := 0
			peak := 0.0
			for i, e := range errs {
				if a := math.Abs(e); a > peak {
					peak = a
					peakIdx = i
				}
			}

			issues = append(issues, models.DetectedIssue{
				ID:         uuid.New().String(),
				Type:       models.IssueTrackingError,
				Axis:       axis,
				Severity:   sev,
				Confidence: confidenceFor(rmsErr / th.TrackingError),
				TimeRange:  models.TimeRange{StartUs: w.StartUs, EndUs: w.EndUs},
				Metrics: models.Metrics{
					RMSError: floatPtr(rmsErr),
					PeakTime: floatPtr(float64(t.frames[w.Start+peakIdx].TimeUs)),
				},
				Description: fmt.Sprintf("Poor setpoint tracking on %s (%.1f deg/s RMS error)",
					axis, rmsErr),
			})
		}
	}
	return issues
}
