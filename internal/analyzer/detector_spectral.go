package analyzer

import (
	"fmt"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/google/uuid"
)

// 陀螺频谱检测频段（Hz）
//
// 机架共振与轴承噪声表现为各自频段内的窄带峰，
// 电气噪声表现为宽带残差能量升高
const (
	resonanceBandMinHz = 70
	resonanceBandMaxHz = 180
	bearingBandMinHz   = 180
	bearingBandMaxHz   = 500
	noiseScanMinHz     = 20
	noiseScanMaxHz     = 1000
)

// electricalNoiseDetector 电气噪声：窗口内陀螺残差 RMS 对比 gyro_noise 阈值
type electricalNoiseDetector struct{}

func (d *electricalNoiseDetector) name() string { return "electrical_noise" }

func (d *electricalNoiseDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	var issues []models.DetectedIssue
	for _, axis := range models.AllAxes() {
		for _, w := range t.windows {
			res := residuals(t.gyroSamples(w, axis))
			noise := rms(res)
			sev, ok := severityFor(noise, th.GyroNoise)
			if !ok {
				continue
			}

			metrics := models.Metrics{NoiseFloor: floatPtr(noise)}
			freq, amp := dominantFrequency(res, t.sampleRate, noiseScanMinHz, noiseScanMaxHz)
			if freq > 0 {
				metrics.Frequency = floatPtr(freq)
				metrics.Amplitude = floatPtr(amp)
			}

			issues = append(issues, models.DetectedIssue{
				ID:         uuid.New().String(),
				Type:       models.IssueElectricalNoise,
				Axis:       axis,
				Severity:   sev,
				Confidence: confidenceFor(noise / th.GyroNoise),
				TimeRange:  models.TimeRange{StartUs: w.StartUs, EndUs: w.EndUs},
				Metrics:    metrics,
				Description: fmt.Sprintf("Elevated gyro noise on %s (%.1f deg/s RMS)",
					axis, noise),
			})
		}
	}
	return issues
}

// frameResonanceDetector 机架共振：70–180Hz 频段内的主频幅值对比 gyro_noise 阈值
type frameResonanceDetector struct{}

func (d *frameResonanceDetector) name() string { return "frame_resonance" }

func (d *frameResonanceDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	return detectBandPeak(t, th.GyroNoise, models.IssueFrameResonance,
		resonanceBandMinHz, resonanceBandMaxHz,
		"Frame resonance on %s around %.0f Hz (%.1f deg/s)")
}

// bearingNoiseDetector 轴承噪声：180–500Hz 频段内的主频幅值对比 gyro_noise 阈值
type bearingNoiseDetector struct{}

func (d *bearingNoiseDetector) name() string { return "bearing_noise" }

func (d *bearingNoiseDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	return detectBandPeak(t, th.GyroNoise, models.IssueBearingNoise,
		bearingBandMinHz, bearingBandMaxHz,
		"Possible bearing noise on %s around %.0f Hz (%.1f deg/s)")
}

// detectBandPeak 频段峰值检测的公共实现
func detectBandPeak(t *telemetry, threshold float64, typ models.IssueType, fminHz, fmaxHz float64, format string) []models.DetectedIssue {
	var issues []models.DetectedIssue
	for _, axis := range models.AllAxes() {
		for _, w := range t.windows {
			res := residuals(t.gyroSamples(w, axis))
			freq, amp := dominantFrequency(res, t.sampleRate, fminHz, fmaxHz)
			if freq <= 0 {
				continue
			}
			sev, ok := severityFor(amp, threshold)
			if !ok {
				continue
			}

			issues = append(issues, models.DetectedIssue{
				ID:         uuid.New().String(),
				Type:       typ,
				Axis:       axis,
				Severity:   sev,
				Confidence: confidenceFor(amp / threshold),
				TimeRange:  models.TimeRange{StartUs: w.StartUs, EndUs: w.EndUs},
				Metrics: models.Metrics{
					Frequency:  floatPtr(freq),
					Amplitude:  floatPtr(amp),
					NoiseFloor: floatPtr(rms(res)),
				},
				Description: fmt.Sprintf(format, axis, freq, amp),
			})
		}
	}
	return issues
}

func floatPtr(v float64) *float64 {
	return &v
}
