package analyzer

import (
	"fmt"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"

	"github.com/google/uuid"
)

// 电压压降检测参数
const (
	// 仅在窗口平均油门不低于该值时评估压降
	sagHighThrottle = 0.7
	// 单片压降阈值（V）：预设没有对应阈值字段，取固定经验值
	// 常量不随分析级别缩放，各级别检出一致，单调性约束平凡成立
	sagPerCellThresholdV = 0.35
	// 电池串数缺省值
	defaultCellCount = 4
)

// voltageSagDetector 电压压降：高油门窗口内单片最大压降对比固定阈值
type voltageSagDetector struct{}

func (d *voltageSagDetector) name() string { return "voltage_sag" }

func (d *voltageSagDetector) detect(t *telemetry, th profile.Thresholds) []models.DetectedIssue {
	if len(t.windows) == 0 {
		return nil
	}

	// 基准电压：全程最高电压（近似静息电压）
	baseline := 0.0
	for _, f := range t.frames {
		if f.VBat > baseline {
			baseline = f.VBat
		}
	}
	if baseline <= 0 {
		return nil
	}

	cells := t.meta.CellCount
	if cells <= 0 {
		cells = defaultCellCount
	}

	var issues []models.DetectedIssue
	for _, w := range t.windows {
		throttle := t.samples(w, func(f models.Frame) float64 { return f.Throttle })
		if mean(throttle) < sagHighThrottle {
			continue
		}

		minV := baseline
		for _, f := range w.Frames(t) {
			if f.VBat < minV {
				minV = f.VBat
			}
		}
		sagPerCell := (baseline - minV) / float64(cells)
		sev, ok := severityFor(sagPerCell, sagPerCellThresholdV)
		if !ok {
			continue
		}

		issues = append(issues, models.DetectedIssue{
			ID:         uuid.New().String(),
			Type:       models.IssueVoltageSag,
			Axis:       t.dominantDisturbanceAxis(w),
			Severity:   sev,
			Confidence: confidenceFor(sagPerCell / sagPerCellThresholdV),
			TimeRange:  models.TimeRange{StartUs: w.StartUs, EndUs: w.EndUs},
			Metrics: models.Metrics{
				Amplitude: floatPtr(sagPerCell),
			},
			Description: fmt.Sprintf("Voltage sag under load (%.2f V per cell)", sagPerCell),
		})
	}
	return issues
}
