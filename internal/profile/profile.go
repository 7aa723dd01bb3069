// Package profile 机型阈值预设与分析级别缩放
//
// 预设为不可变配置数据；按分析级别缩放时派生新副本，从不修改原预设
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds 命名阈值集合
//
// 数值含义由各检测器定义（RMS 噪声为 deg/s，占比类为 0..1 的比例）
type Thresholds struct {
	GyroNoise               float64 `yaml:"gyro_noise" json:"gyro_noise"`
	DTermNoise              float64 `yaml:"dterm_noise" json:"dterm_noise"`
	PropwashAmplitude       float64 `yaml:"propwash_amplitude" json:"propwash_amplitude"`
	BouncebackOvershoot     float64 `yaml:"bounceback_overshoot" json:"bounceback_overshoot"`
	WobbleAmplitude         float64 `yaml:"wobble_amplitude" json:"wobble_amplitude"`
	MotorSaturation         float64 `yaml:"motor_saturation" json:"motor_saturation"`
	TrackingError           float64 `yaml:"tracking_error" json:"tracking_error"`
	HighThrottleOscillation float64 `yaml:"high_throttle_oscillation" json:"high_throttle_oscillation"`
}

// QuadProfile 机型预设：ID + 阈值记录
type QuadProfile struct {
	ID         string     `yaml:"id" json:"id"`
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
}

// AnalysisLevel 分析级别（灵敏度设置）
type AnalysisLevel string

const (
	LevelBasic   AnalysisLevel = "basic"
	LevelAverage AnalysisLevel = "average"
	LevelExpert  AnalysisLevel = "expert"
)

// Multiplier 级别对应的阈值乘数：乘数越低阈值越严格、检测越灵敏
func (l AnalysisLevel) Multiplier() float64 {
	switch l {
	case LevelBasic:
		return 4.0
	case LevelExpert:
		return 0.5
	default:
		return 1.25 // average
	}
}

// ScaledForLevel 按分析级别派生缩放后的预设副本，原预设不变
func (p QuadProfile) ScaledForLevel(level AnalysisLevel) QuadProfile {
	m := level.Multiplier()
	scaled := p
	scaled.Thresholds.GyroNoise *= m
	scaled.Thresholds.DTermNoise *= m
	scaled.Thresholds.PropwashAmplitude *= m
	scaled.Thresholds.BouncebackOvershoot *= m
	scaled.Thresholds.WobbleAmplitude *= m
	scaled.Thresholds.MotorSaturation *= m
	scaled.Thresholds.TrackingError *= m
	scaled.Thresholds.HighThrottleOscillation *= m
	return scaled
}

// DefaultProfileID 默认机型预设
const DefaultProfileID = "five_inch"

// 内置预设：按机型经验值调校
var presets = []QuadProfile{
	{
		ID: "whoop",
		Thresholds: Thresholds{
			GyroNoise:               14.0,
			DTermNoise:              30.0,
			PropwashAmplitude:       20.0,
			BouncebackOvershoot:     0.22,
			WobbleAmplitude:         0.12,
			MotorSaturation:         0.20,
			TrackingError:           40.0,
			HighThrottleOscillation: 0.05,
		},
	},
	{
		ID: "toothpick",
		Thresholds: Thresholds{
			GyroNoise:               12.0,
			DTermNoise:              26.0,
			PropwashAmplitude:       18.0,
			BouncebackOvershoot:     0.20,
			WobbleAmplitude:         0.10,
			MotorSaturation:         0.18,
			TrackingError:           35.0,
			HighThrottleOscillation: 0.04,
		},
	},
	{
		ID: "three_inch",
		Thresholds: Thresholds{
			GyroNoise:               10.0,
			DTermNoise:              22.0,
			PropwashAmplitude:       15.0,
			BouncebackOvershoot:     0.18,
			WobbleAmplitude:         0.09,
			MotorSaturation:         0.15,
			TrackingError:           30.0,
			HighThrottleOscillation: 0.03,
		},
	},
	{
		ID: DefaultProfileID,
		Thresholds: Thresholds{
			GyroNoise:               8.0,
			DTermNoise:              18.0,
			PropwashAmplitude:       12.0,
			BouncebackOvershoot:     0.15,
			WobbleAmplitude:         0.08,
			MotorSaturation:         0.12,
			TrackingError:           25.0,
			HighThrottleOscillation: 0.02,
		},
	},
	{
		ID: "seven_inch",
		Thresholds: Thresholds{
			GyroNoise:               6.0,
			DTermNoise:              15.0,
			PropwashAmplitude:       10.0,
			BouncebackOvershoot:     0.12,
			WobbleAmplitude:         0.06,
			MotorSaturation:         0.10,
			TrackingError:           20.0,
			HighThrottleOscillation: 0.02,
		},
	},
	{
		ID: "cinelifter",
		Thresholds: Thresholds{
			GyroNoise:               7.0,
			DTermNoise:              16.0,
			PropwashAmplitude:       14.0,
			BouncebackOvershoot:     0.14,
			WobbleAmplitude:         0.07,
			MotorSaturation:         0.14,
			TrackingError:           22.0,
			HighThrottleOscillation: 0.03,
		},
	},
}

// Default 返回默认预设（five_inch）
func Default() QuadProfile {
	p, _ := ByID(DefaultProfileID)
	return p
}

// ByID 按 ID 查找内置预设
func ByID(id string) (QuadProfile, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return QuadProfile{}, false
}

// All 返回全部内置预设的副本
func All() []QuadProfile {
	out := make([]QuadProfile, len(presets))
	copy(out, presets)
	return out
}

// LoadFile 从 YAML 文件加载自定义预设列表
//
// 文件格式：
//
//	profiles:
//	  - id: my_quad
//	    thresholds:
//	      gyro_noise: 9.0
//	      ...
func LoadFile(path string) ([]QuadProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var doc struct {
		Profiles []QuadProfile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for _, p := range doc.Profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("profile without id in %s", path)
		}
	}

	return doc.Profiles, nil
}

// Resolve 在自定义预设与内置预设中解析 ID，优先自定义
func Resolve(id string, custom []QuadProfile) (QuadProfile, bool) {
	for _, p := range custom {
		if p.ID == id {
			return p, true
		}
	}
	return ByID(id)
}
