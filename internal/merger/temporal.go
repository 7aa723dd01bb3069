// Package merger 问题合并阶段：时间去重与跨轴频率合并
//
// 两个阶段均为纯函数，从不就地修改输入问题，
// 而是由分组构造新的代表问题并丢弃原始实例；
// 被丢弃的 id 记录在重映射表中，供建议引用改写使用
package merger

import (
	"fmt"
	"sort"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
)

const (
	// 时间邻近合并间隔：间隔小于 100ms（含重叠）的同类同轴问题合并为一条
	temporalGapUs = 100_000

	// 折叠后展示的发生次数上限
	maxDisplayedOccurrences = 5
)

// Deduplicate 时间去重，纯函数，对任意输入（含空列表）全定义
//
// 第一遍：按 (type, axis) 分组，组内按起始时间排序，
// 合并时间上重叠或邻近（间隔 < 100ms）的问题；
// 第二遍：每组折叠为一条代表问题，发生次数上限 5 条展示。
//
// 返回值中的重映射表记录每个被折叠 id → 存活 id，
// 调用方据此改写建议引用，保证合并后无悬空引用
func Deduplicate(issues []models.DetectedIssue) ([]models.DetectedIssue, map[string]string) {
	remap := make(map[string]string)
	if len(issues) == 0 {
		return issues, remap
	}

	// 按 (type, axis) 分组，保留键首次出现的顺序保证输出可复现
	var keyOrder []models.IssueKey
	groups := make(map[models.IssueKey][]models.DetectedIssue)
	for _, issue := range issues {
		key := issue.Key()
		if _, ok := groups[key]; !ok {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], issue)
	}

	out := make([]models.DetectedIssue, 0, len(keyOrder))
	for _, key := range keyOrder {
		merged := mergeAdjacent(groups[key], remap)
		out = append(out, collapseGroup(merged, remap))
	}

	compressRemap(remap)
	return out, remap
}

// mergeAdjacent 第一遍：组内按起始时间排序后合并时间邻近的问题
func mergeAdjacent(group []models.DetectedIssue, remap map[string]string) []models.DetectedIssue {
	sorted := make([]models.DetectedIssue, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeRange.StartUs < sorted[j].TimeRange.StartUs
	})

	var merged []models.DetectedIssue
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.TimeRange.StartUs-cur.TimeRange.EndUs < temporalGapUs {
			cur = mergePair(cur, next, remap)
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}

// mergePair 合并两条时间邻近的问题为一条新问题
//
// 代表字段（metrics/description/id）取置信度较高者，持平取后处理者
func mergePair(cur, next models.DetectedIssue, remap map[string]string) models.DetectedIssue {
	rep, other := next, cur
	if cur.Confidence > next.Confidence {
		rep, other = cur, next
	}

	merged := rep
	merged.TimeRange = models.TimeRange{
		StartUs: minInt64(cur.TimeRange.StartUs, next.TimeRange.StartUs),
		EndUs:   maxInt64(cur.TimeRange.EndUs, next.TimeRange.EndUs),
	}
	merged.Severity = models.MaxSeverity(cur.Severity, next.Severity)
	merged.Confidence = (cur.Confidence + next.Confidence) / 2

	remap[other.ID] = rep.ID
	return merged
}

// collapseGroup 第二遍：将一组第一遍幸存者折叠为一条代表问题
//
// 置信度取幸存者均值：第一遍已对相邻对做过两两平均，
// 被合并的原始检测对最终均值的权重因此与未合并者不同，
// 这是两遍设计的固有属性而非按原始检测的等权均值
func collapseGroup(group []models.DetectedIssue, remap map[string]string) models.DetectedIssue {
	if len(group) == 1 {
		return group[0]
	}

	// 代表：严重程度最高者，持平取置信度最高者（再持平保留先遇到的）
	rep := group[0]
	for _, cand := range group[1:] {
		if betterRepresentative(cand, rep) {
			rep = cand
		}
	}

	collapsed := rep
	collapsed.Severity = group[0].Severity
	collapsed.TimeRange = group[0].TimeRange
	sum := 0.0
	for i, member := range group {
		sum += member.Confidence
		if i == 0 {
			continue
		}
		collapsed.Severity = models.MaxSeverity(collapsed.Severity, member.Severity)
		collapsed.TimeRange.StartUs = minInt64(collapsed.TimeRange.StartUs, member.TimeRange.StartUs)
		collapsed.TimeRange.EndUs = maxInt64(collapsed.TimeRange.EndUs, member.TimeRange.EndUs)
	}
	collapsed.Confidence = sum / float64(len(group))
	collapsed.Metrics = foldWorstCase(rep.Metrics, group)
	collapsed.Description = fmt.Sprintf("%s (×%d)", rep.Description, len(group))
	collapsed.Occurrences, collapsed.PeakTimes = selectOccurrences(group)
	if len(group) > maxDisplayedOccurrences {
		total := len(group)
		collapsed.TotalOccurrences = &total
	} else {
		collapsed.TotalOccurrences = nil
	}

	for _, member := range group {
		if member.ID != rep.ID {
			remap[member.ID] = rep.ID
		}
	}
	return collapsed
}

// betterRepresentative 代表选择比较链：严重程度 → 置信度（严格优于）
func betterRepresentative(cand, cur models.DetectedIssue) bool {
	if cand.Severity != cur.Severity {
		return cand.Severity > cur.Severity
	}
	return cand.Confidence > cur.Confidence
}

// selectOccurrences 生成折叠问题的发生历史
//
// 组员 ≤5 条时全部保留；超过时取置信度最高的 5 条
// （置信度持平按原检测顺序，保证输出可复现），再按起始时间重新排序
func selectOccurrences(group []models.DetectedIssue) ([]models.TimeRange, []int64) {
	selected := group
	if len(group) > maxDisplayedOccurrences {
		byConfidence := make([]models.DetectedIssue, len(group))
		copy(byConfidence, group)
		sort.SliceStable(byConfidence, func(i, j int) bool {
			return byConfidence[i].Confidence > byConfidence[j].Confidence
		})
		selected = byConfidence[:maxDisplayedOccurrences]
	}

	ordered := make([]models.DetectedIssue, len(selected))
	copy(ordered, selected)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimeRange.StartUs < ordered[j].TimeRange.StartUs
	})

	occurrences := make([]models.TimeRange, len(ordered))
	peakTimes := make([]int64, len(ordered))
	for i, member := range ordered {
		occurrences[i] = member.TimeRange
		if member.Metrics.PeakTime != nil {
			peakTimes[i] = int64(*member.Metrics.PeakTime)
		} else {
			// 无显式峰值时间时退化为区间中点
			peakTimes[i] = member.TimeRange.MidpointUs()
		}
	}
	return occurrences, peakTimes
}

// foldWorstCase 代表指标叠加组内最坏值
//
// 仅对定义了该字段的组员取最大值；全组未定义时保持缺省
func foldWorstCase(rep models.Metrics, group []models.DetectedIssue) models.Metrics {
	folded := rep
	folded.Overshoot = maxDefined(group, func(m models.Metrics) *float64 { return m.Overshoot })
	folded.SettlingTime = maxDefined(group, func(m models.Metrics) *float64 { return m.SettlingTime })
	folded.Amplitude = maxDefined(group, func(m models.Metrics) *float64 { return m.Amplitude })
	folded.RMSError = maxDefined(group, func(m models.Metrics) *float64 { return m.RMSError })
	folded.DTermActivity = maxDefined(group, func(m models.Metrics) *float64 { return m.DTermActivity })
	folded.MotorSaturation = maxDefined(group, func(m models.Metrics) *float64 { return m.MotorSaturation })
	folded.NoiseFloor = maxDefined(group, func(m models.Metrics) *float64 { return m.NoiseFloor })
	return folded
}

func maxDefined(group []models.DetectedIssue, field func(models.Metrics) *float64) *float64 {
	var best *float64
	for _, member := range group {
		v := field(member.Metrics)
		if v == nil {
			continue
		}
		if best == nil || *v > *best {
			value := *v
			best = &value
		}
	}
	return best
}

// compressRemap 将重映射链压缩为直接映射（A→B→C 压缩为 A→C）
func compressRemap(remap map[string]string) {
	for loser, winner := range remap {
		for {
			next, ok := remap[winner]
			if !ok {
				break
			}
			winner = next
		}
		remap[loser] = winner
	}
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
