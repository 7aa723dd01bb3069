package merger

import (
	"fmt"
	"testing"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeIssue 测试用问题构造
func makeIssue(id string, typ models.IssueType, axis models.Axis, sev models.Severity, conf float64, startUs, endUs int64) models.DetectedIssue {
	return models.DetectedIssue{
		ID:          id,
		Type:        typ,
		Axis:        axis,
		Severity:    sev,
		Confidence:  conf,
		TimeRange:   models.TimeRange{StartUs: startUs, EndUs: endUs},
		Description: fmt.Sprintf("issue %s", id),
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestDeduplicate_Empty(t *testing.T) {
	out, remap := Deduplicate(nil)
	assert.Empty(t, out)
	assert.Empty(t, remap)

	out, remap = Deduplicate([]models.DetectedIssue{})
	assert.Empty(t, out)
	assert.Empty(t, remap)
}

func TestDeduplicate_SingleIssuePassThrough(t *testing.T) {
	issue := makeIssue("a", models.IssuePropwash, models.AxisRoll, models.SeverityLow, 0.5, 0, 100_000)

	out, remap := Deduplicate([]models.DetectedIssue{issue})

	require.Len(t, out, 1)
	assert.Equal(t, issue, out[0])
	assert.Empty(t, remap)
	assert.Nil(t, out[0].Occurrences)
	assert.Nil(t, out[0].TotalOccurrences)
	assert.NotContains(t, out[0].Description, "(×")
}

func TestDeduplicate_MergesWithinGap(t *testing.T) {
	// 间隔 50ms < 100ms，第一遍合并为一条
	a := makeIssue("a", models.IssuePropwash, models.AxisRoll, models.SeverityLow, 0.4, 0, 200_000)
	b := makeIssue("b", models.IssuePropwash, models.AxisRoll, models.SeverityHigh, 0.8, 250_000, 400_000)

	out, remap := Deduplicate([]models.DetectedIssue{a, b})

	require.Len(t, out, 1)
	merged := out[0]
	// 时间范围取并
	assert.Equal(t, int64(0), merged.TimeRange.StartUs)
	assert.Equal(t, int64(400_000), merged.TimeRange.EndUs)
	// 严重程度取最大，置信度取平均
	assert.Equal(t, models.SeverityHigh, merged.Severity)
	assert.InDelta(t, 0.6, merged.Confidence, 1e-9)
	// 代表取置信度较高者
	assert.Equal(t, "b", merged.ID)
	assert.Equal(t, "issue b", merged.Description)
	// 被合并方记入重映射表
	assert.Equal(t, "b", remap["a"])
}

func TestDeduplicate_GapAtThresholdNotMerged(t *testing.T) {
	// 间隔恰为 100ms：不满足 < 100ms，第一遍不合并，第二遍整组折叠
	a := makeIssue("a", models.IssuePropwash, models.AxisRoll, models.SeverityLow, 0.4, 0, 100_000)
	b := makeIssue("b", models.IssuePropwash, models.AxisRoll, models.SeverityLow, 0.6, 200_000, 300_000)

	out, _ := Deduplicate([]models.DetectedIssue{a, b})

	require.Len(t, out, 1)
	assert.Contains(t, out[0].Description, "(×2)")
	assert.Len(t, out[0].Occurrences, 2)
	assert.Nil(t, out[0].TotalOccurrences)
}

func TestDeduplicate_DifferentKeysNotMerged(t *testing.T) {
	// 同类型不同轴、同轴不同类型均不合并
	a := makeIssue("a", models.IssuePropwash, models.AxisRoll, models.SeverityLow, 0.4, 0, 100_000)
	b := makeIssue("b", models.IssuePropwash, models.AxisPitch, models.SeverityLow, 0.4, 0, 100_000)
	c := makeIssue("c", models.IssueBounceback, models.AxisRoll, models.SeverityLow, 0.4, 0, 100_000)

	out, remap := Deduplicate([]models.DetectedIssue{a, b, c})

	assert.Len(t, out, 3)
	assert.Empty(t, remap)
}

func TestDeduplicate_GroupCollapse_CapAndSelection(t *testing.T) {
	// 8 条同类同轴问题，起始时间间隔 2s（远大于 100ms 合并间隔），
	// 置信度 [0.3, 0.9, 0.5, 0.8, 0.2, 0.95, 0.4, 0.7]
	confidences := []float64{0.3, 0.9, 0.5, 0.8, 0.2, 0.95, 0.4, 0.7}
	var issues []models.DetectedIssue
	for i, conf := range confidences {
		start := int64(i) * 2_000_000
		issues = append(issues, makeIssue(
			fmt.Sprintf("i%d", i),
			models.IssueTrackingError, models.AxisPitch,
			models.SeverityLow, conf,
			start, start+50_000,
		))
	}
	issues[5].Severity = models.SeverityHigh // 0.95 置信度成员同时是最严重者

	out, remap := Deduplicate(issues)

	require.Len(t, out, 1)
	collapsed := out[0]

	// 超出显示上限：保留置信度最高的 5 条，按起始时间重排
	require.NotNil(t, collapsed.TotalOccurrences)
	assert.Equal(t, 8, *collapsed.TotalOccurrences)
	require.Len(t, collapsed.Occurrences, 5)
	starts := make([]int64, len(collapsed.Occurrences))
	for i, occ := range collapsed.Occurrences {
		starts[i] = occ.StartUs
	}
	assert.Equal(t, []int64{2_000_000, 4_000_000, 6_000_000, 10_000_000, 14_000_000}, starts)

	// 峰值时间与发生历史平行，缺省回退到区间中点
	require.Len(t, collapsed.PeakTimes, 5)
	assert.Equal(t, int64(2_025_000), collapsed.PeakTimes[0])

	// 聚合量覆盖全组而非展示子集
	assert.Equal(t, models.SeverityHigh, collapsed.Severity)
	assert.InDelta(t, 4.75/8, collapsed.Confidence, 1e-9)
	assert.Equal(t, int64(0), collapsed.TimeRange.StartUs)
	assert.Equal(t, int64(14_050_000), collapsed.TimeRange.EndUs)
	assert.Contains(t, collapsed.Description, "(×8)")

	// 代表为最严重成员，其余 7 条全部重映射到代表
	assert.Equal(t, "i5", collapsed.ID)
	assert.Len(t, remap, 7)
	for _, loser := range []string{"i0", "i1", "i2", "i3", "i4", "i6", "i7"} {
		assert.Equal(t, "i5", remap[loser])
	}
}

func TestDeduplicate_SmallGroupKeepsAllOccurrences(t *testing.T) {
	var issues []models.DetectedIssue
	for i := 0; i < 3; i++ {
		start := int64(i) * 1_000_000
		issue := makeIssue(fmt.Sprintf("i%d", i),
			models.IssueDTermNoise, models.AxisYaw,
			models.SeverityLow, 0.5,
			start, start+100_000,
		)
		issues = append(issues, issue)
	}
	// 显式峰值时间优先于区间中点
	issues[1].Metrics.PeakTime = floatPtr(1_080_000)

	out, _ := Deduplicate(issues)

	require.Len(t, out, 1)
	assert.Len(t, out[0].Occurrences, 3)
	assert.Nil(t, out[0].TotalOccurrences)
	assert.Equal(t, []int64{50_000, 1_080_000, 2_050_000}, out[0].PeakTimes)
	assert.Contains(t, out[0].Description, "(×3)")
}

func TestDeduplicate_RepresentativeSelection(t *testing.T) {
	// 严重程度相同时置信度高者作代表
	a := makeIssue("a", models.IssueMotorHealth, models.AxisRoll, models.SeverityMedium, 0.5, 0, 100_000)
	b := makeIssue("b", models.IssueMotorHealth, models.AxisRoll, models.SeverityMedium, 0.9, 1_000_000, 1_100_000)

	out, _ := Deduplicate([]models.DetectedIssue{a, b})

	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "issue b (×2)", out[0].Description)
}

func TestDeduplicate_WorstCaseMetricFold(t *testing.T) {
	a := makeIssue("a", models.IssueBounceback, models.AxisRoll, models.SeverityHigh, 0.9, 0, 100_000)
	a.Metrics.Overshoot = floatPtr(0.2)
	a.Metrics.SettlingTime = floatPtr(80)
	b := makeIssue("b", models.IssueBounceback, models.AxisRoll, models.SeverityLow, 0.4, 1_000_000, 1_100_000)
	b.Metrics.Overshoot = floatPtr(0.35)

	out, _ := Deduplicate([]models.DetectedIssue{a, b})

	require.Len(t, out, 1)
	collapsed := out[0]
	// 代表为 a（最严重），但 overshoot 取组内最大值
	assert.Equal(t, "a", collapsed.ID)
	require.NotNil(t, collapsed.Metrics.Overshoot)
	assert.Equal(t, 0.35, *collapsed.Metrics.Overshoot)
	// 仅 a 定义的字段保留
	require.NotNil(t, collapsed.Metrics.SettlingTime)
	assert.Equal(t, 80.0, *collapsed.Metrics.SettlingTime)
	// 全组未定义的字段保持缺省
	assert.Nil(t, collapsed.Metrics.Amplitude)
	assert.Nil(t, collapsed.Metrics.NoiseFloor)
}

func TestDeduplicate_RemapChainsCompressed(t *testing.T) {
	// 第一遍内的链式合并：a 并入 b，累积体再并入 c（置信度持平取后处理者）
	a := makeIssue("a", models.IssueEscDesync, models.AxisYaw, models.SeverityLow, 0.5, 0, 100_000)
	b := makeIssue("b", models.IssueEscDesync, models.AxisYaw, models.SeverityLow, 0.9, 150_000, 250_000)
	c := makeIssue("c", models.IssueEscDesync, models.AxisYaw, models.SeverityLow, 0.7, 300_000, 400_000)

	out, remap := Deduplicate([]models.DetectedIssue{a, b, c})

	require.Len(t, out, 1)
	survivor := out[0].ID
	// 全部失败者直接映射到最终幸存者，无中间跳转
	for loser, winner := range remap {
		assert.NotEqual(t, survivor, loser)
		assert.Equal(t, survivor, winner)
	}
	assert.Len(t, remap, 2)
}
