package models

import (
	"encoding/json"
	"fmt"
)

// Axis 飞行器的旋转轴（闭集枚举）
//
// 枚举值顺序即显示顺序：roll < pitch < yaw
type Axis int

const (
	AxisRoll Axis = iota
	AxisPitch
	AxisYaw
)

// AllAxes 按固定顺序返回全部轴
func AllAxes() []Axis {
	return []Axis{AxisRoll, AxisPitch, AxisYaw}
}

func (a Axis) String() string {
	switch a {
	case AxisRoll:
		return "roll"
	case AxisPitch:
		return "pitch"
	case AxisYaw:
		return "yaw"
	default:
		return "unknown"
	}
}

// MarshalJSON 序列化为字符串形式（"roll" 等）
func (a Axis) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON 从字符串形式反序列化
func (a *Axis) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "roll":
		*a = AxisRoll
	case "pitch":
		*a = AxisPitch
	case "yaw":
		*a = AxisYaw
	default:
		return fmt.Errorf("unknown axis: %s", s)
	}
	return nil
}

// IssueType 检测问题类型（闭集枚举）
type IssueType int

const (
	IssueBounceback IssueType = iota
	IssuePropwash
	IssueFrameResonance
	IssueBearingNoise
	IssueElectricalNoise
	IssueDTermNoise
	IssueMotorHealth
	IssueEscDesync
	IssueVoltageSag
	IssueCGOffset
	IssueTrackingError
)

var issueTypeNames = map[IssueType]string{
	IssueBounceback:      "bounceback",
	IssuePropwash:        "propwash",
	IssueFrameResonance:  "frameResonance",
	IssueBearingNoise:    "bearingNoise",
	IssueElectricalNoise: "electricalNoise",
	IssueDTermNoise:      "dtermNoise",
	IssueMotorHealth:     "motorHealth",
	IssueEscDesync:       "escDesync",
	IssueVoltageSag:      "voltageSag",
	IssueCGOffset:        "cgOffset",
	IssueTrackingError:   "trackingError",
}

func (t IssueType) String() string {
	if name, ok := issueTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Mergeable 是否属于跨轴频率合并类型集合
//
// 仅限同时在三轴上物理表现的结构性硬件问题
func (t IssueType) Mergeable() bool {
	switch t {
	case IssueFrameResonance, IssueBearingNoise, IssueElectricalNoise:
		return true
	default:
		return false
	}
}

// MarshalJSON 序列化为字符串形式（"bounceback" 等）
func (t IssueType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON 从字符串形式反序列化
func (t *IssueType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for typ, name := range issueTypeNames {
		if name == s {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("unknown issue type: %s", s)
}

// Severity 问题严重程度（全序：low < medium < high）
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalJSON 序列化为字符串形式（"low" 等）
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON 从字符串形式反序列化
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "low":
		*s = SeverityLow
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	default:
		return fmt.Errorf("unknown severity: %s", str)
	}
	return nil
}

// MaxSeverity 返回两者中较高的严重程度
func MaxSeverity(a, b Severity) Severity {
	if a >= b {
		return a
	}
	return b
}

// IssueKey (type, axis) 复合分组键
//
// 使用显式结构体键而非拼接字符串，避免键冲突
type IssueKey struct {
	Type IssueType
	Axis Axis
}

// TimeRange 闭区间时间段 [StartUs, EndUs]（微秒），StartUs <= EndUs
type TimeRange struct {
	StartUs int64 `json:"start_us"`
	EndUs   int64 `json:"end_us"`
}

// MidpointUs 区间中点，无显式峰值时间时作为兜底
func (r TimeRange) MidpointUs() int64 {
	return r.StartUs + (r.EndUs-r.StartUs)/2
}

// Metrics 稀疏指标集合：每个字段独立可缺省，只填充相关检测器产生的字段
type Metrics struct {
	Frequency       *float64 `json:"frequency,omitempty"`        // Hz
	Amplitude       *float64 `json:"amplitude,omitempty"`        // deg/s 或归一化幅值
	Overshoot       *float64 `json:"overshoot,omitempty"`        // 过冲比例
	SettlingTime    *float64 `json:"settling_time,omitempty"`    // ms
	RMSError        *float64 `json:"rms_error,omitempty"`        // deg/s
	DTermActivity   *float64 `json:"dterm_activity,omitempty"`   //
	MotorSaturation *float64 `json:"motor_saturation,omitempty"` // 饱和时间占比
	NoiseFloor      *float64 `json:"noise_floor,omitempty"`      // deg/s
	PeakTime        *float64 `json:"peak_time,omitempty"`        // µs
}

// 跨轴合并模式常量
const (
	PatternAllAxes       = "allAxes"
	PatternRollPitchOnly = "rollPitchOnly"
	PatternAsymmetric    = "asymmetric"
)

// CrossAxisContext 跨轴合并注释（仅由跨轴合并器设置）
type CrossAxisContext struct {
	Pattern      string `json:"pattern"`
	AffectedAxes []Axis `json:"affected_axes"`
	Description  string `json:"description"`
}

// DetectedIssue 一条诊断出的问题实例
//
// 由规则引擎一次性创建；两个合并阶段从不就地修改，
// 而是由分组构造新的代表问题并丢弃原始实例
type DetectedIssue struct {
	ID          string            `json:"id"`
	Type        IssueType         `json:"type"`
	Axis        Axis              `json:"axis"`
	Severity    Severity          `json:"severity"`
	Confidence  float64           `json:"confidence"` // [0, 1]
	TimeRange   TimeRange         `json:"time_range"`
	Metrics     Metrics           `json:"metrics"`
	Description string            `json:"description"`
	Occurrences []TimeRange       `json:"occurrences,omitempty"` // 按时间排序，上限 5 条
	PeakTimes   []int64           `json:"peak_times,omitempty"`  // 与 Occurrences 平行
	// TotalOccurrences 仅当折叠前的真实条数超过显示上限时才设置
	TotalOccurrences *int              `json:"total_occurrences,omitempty"`
	CrossAxis        *CrossAxisContext `json:"cross_axis_context,omitempty"`
}

// Key 返回问题的 (type, axis) 分组键
func (i DetectedIssue) Key() IssueKey {
	return IssueKey{Type: i.Type, Axis: i.Axis}
}

// Recommendation 调参建议
//
// 对核心管线而言除 IssueID / RelatedIssueIDs 两个引用字段外均为不透明数据；
// 合并阶段只会改写这两个字段，从不删除建议本身
type Recommendation struct {
	ID              string   `json:"id"`
	IssueID         string   `json:"issue_id"`
	RelatedIssueIDs []string `json:"related_issue_ids,omitempty"`
	Category        string   `json:"category"` // filter, pid, hardware, power
	Title           string   `json:"title"`
	Action          string   `json:"action"`
	Commands        []string `json:"commands,omitempty"` // CLI 命令参考
}

// AnalysisResult 管线最终输出：问题与建议之间保证无悬空 id 引用
type AnalysisResult struct {
	Issues          []DetectedIssue  `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
}
