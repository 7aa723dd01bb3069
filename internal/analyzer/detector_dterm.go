package analyzer

import (
	"fmt"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/google/uuid"
)

// dtermNoiseDetector D 项噪声：窗口内 D 项残差 RMS 对比 dterm_noise 阈值
//
// D 项噪声会直接放大到电机输出，导致电机发热
type dtermNoiseDetector struct{}

func (d *dtermNoiseDetector) name() string { return "dterm_noise" }

func (d *dtermNoiseDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	var issues []models.DetectedIssue
	for _, axis := range models.AllAxes() {
		for _, w := range t.windows {
			res := residuals(t.samples(w, func(f models.Frame) float64 { return f.DTerm[axis] }))
			activity := rms(res)
			sev, ok := severityFor(activity, th.DTermNoise)
			if !ok {
				continue
			}

			issues = append(issues, models.DetectedIssue{
				ID:         uuid.New().String(),
				Type:       models.IssueDTermNoise,
				Axis:       axis,
				Severity:   sev,
				Confidence: confidenceFor(activity / th.DTermNoise),
				TimeRange:  models.TimeRange{StartUs: w.StartUs, EndUs: w.EndUs},
				Metrics: models.Metrics{
					DTermActivity: floatPtr(activity),
				},
				Description: fmt.Sprintf("Noisy D-term on %s (%.1f RMS)", axis, activity),
			})
		}
	}
	return issues
}
