package merger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
)

// 跨轴聚类判据：与运行均值的相对频差不超过 10%
const frequencyClusterTolerance = 0.10

// 跨轴合并类型的处理顺序固定，保证输出可复现
var mergeableTypes = []models.IssueType{
	models.IssueFrameResonance,
	models.IssueBearingNoise,
	models.IssueElectricalNoise,
}

// MergeFrequency 跨轴频率合并
//
// 仅处理可合并类型且携带有效频率指标（> 0，避免运行均值除零）的问题；
// 其余问题原样通过。候选按类型分组后按频率升序单遍扫描聚类，
// 与运行均值相差 10% 以内并入当前簇（每次并入后重算均值）。
// 单元素簇原样通过；多元素簇按 严重程度 → 幅值 → 置信度 比较链选出幸存者，
// 标注跨轴上下文，失败者 id 记入重映射表并用于改写建议引用。
//
// 无任何候选时走快速路径，原样返回输入
func MergeFrequency(issues []models.DetectedIssue, recs []models.Recommendation) ([]models.DetectedIssue, []models.Recommendation) {
	hasCandidate := false
	for _, issue := range issues {
		if isClusterCandidate(issue) {
			hasCandidate = true
			break
		}
	}
	if !hasCandidate {
		return issues, recs
	}

	byType := make(map[models.IssueType][]int)
	for i, issue := range issues {
		if isClusterCandidate(issue) {
			byType[issue.Type] = append(byType[issue.Type], i)
		}
	}

	remap := make(map[string]string)
	dropped := make(map[string]bool)
	contexts := make(map[string]*models.CrossAxisContext)

	for _, typ := range mergeableTypes {
		candidates := byType[typ]
		if len(candidates) < 2 {
			continue
		}

		// 按频率升序（稳定排序保持同频时的原检测顺序）
		sort.SliceStable(candidates, func(i, j int) bool {
			return *issues[candidates[i]].Metrics.Frequency < *issues[candidates[j]].Metrics.Frequency
		})

		for _, cluster := range clusterByFrequency(issues, candidates) {
			if len(cluster) < 2 {
				continue
			}

			winner := cluster[0]
			for _, idx := range cluster[1:] {
				if betterWinner(issues[idx], issues[winner]) {
					winner = idx
				}
			}

			contexts[issues[winner].ID] = buildCrossAxisContext(issues, cluster, winner)
			for _, idx := range cluster {
				if idx == winner {
					continue
				}
				remap[issues[idx].ID] = issues[winner].ID
				dropped[issues[idx].ID] = true
			}
		}
	}

	out := make([]models.DetectedIssue, 0, len(issues))
	for _, issue := range issues {
		if dropped[issue.ID] {
			continue
		}
		if ctx, ok := contexts[issue.ID]; ok {
			survivor := issue
			survivor.CrossAxis = ctx
			out = append(out, survivor)
			continue
		}
		out = append(out, issue)
	}

	return out, RemapRecommendations(recs, remap)
}

// isClusterCandidate 候选判定：可合并类型且频率指标有效
//
// 零/负频率不参与聚类（视为不可合并），避免运行均值比值未定义
func isClusterCandidate(issue models.DetectedIssue) bool {
	return issue.Type.Mergeable() &&
		issue.Metrics.Frequency != nil &&
		*issue.Metrics.Frequency > 0
}

// clusterByFrequency 对按频率升序的候选下标做单遍运行均值聚类
func clusterByFrequency(issues []models.DetectedIssue, candidates []int) [][]int {
	var clusters [][]int
	cur := []int{candidates[0]}
	mean := *issues[candidates[0]].Metrics.Frequency

	for _, idx := range candidates[1:] {
		f := *issues[idx].Metrics.Frequency
		// 升序扫描下 f >= 首元素，相对差以运行均值为基准
		if (f-mean)/mean <= frequencyClusterTolerance {
			cur = append(cur, idx)
			sum := 0.0
			for _, i := range cur {
				sum += *issues[i].Metrics.Frequency
			}
			mean = sum / float64(len(cur))
			continue
		}
		clusters = append(clusters, cur)
		cur = []int{idx}
		mean = f
	}
	return append(clusters, cur)
}

// betterWinner 幸存者比较链：严重程度 → 幅值 → 置信度（严格优于，持平保留先遇到的）
func betterWinner(cand, cur models.DetectedIssue) bool {
	if cand.Severity != cur.Severity {
		return cand.Severity > cur.Severity
	}
	ca, cb := amplitudeOrZero(cand), amplitudeOrZero(cur)
	if ca != cb {
		return ca > cb
	}
	return cand.Confidence > cur.Confidence
}

// amplitudeOrZero 缺省幅值按最低处理
func amplitudeOrZero(issue models.DetectedIssue) float64 {
	if issue.Metrics.Amplitude == nil {
		return 0
	}
	return *issue.Metrics.Amplitude
}

// buildCrossAxisContext 由完整簇构建跨轴上下文
//
// 受影响轴按 roll、pitch、yaw 固定顺序排列
func buildCrossAxisContext(issues []models.DetectedIssue, cluster []int, winner int) *models.CrossAxisContext {
	present := make(map[models.Axis]bool)
	for _, idx := range cluster {
		present[issues[idx].Axis] = true
	}

	var axes []models.Axis
	for _, axis := range models.AllAxes() {
		if present[axis] {
			axes = append(axes, axis)
		}
	}

	pattern := models.PatternAsymmetric
	switch {
	case len(axes) == 3:
		pattern = models.PatternAllAxes
	case len(axes) == 2 && present[models.AxisRoll] && present[models.AxisPitch]:
		pattern = models.PatternRollPitchOnly
	}

	winnerAxis := issues[winner].Axis
	var description string
	if pattern == models.PatternAllAxes {
		description = fmt.Sprintf("Detected on all axes, strongest on %s", winnerAxis)
	} else {
		var others []string
		for _, axis := range axes {
			if axis != winnerAxis {
				others = append(others, axis.String())
			}
		}
		if len(others) == 0 {
			description = fmt.Sprintf("Strongest on %s", winnerAxis)
		} else {
			description = fmt.Sprintf("Strongest on %s, also detected on %s",
				winnerAxis, strings.Join(others, " and "))
		}
	}

	return &models.CrossAxisContext{
		Pattern:      pattern,
		AffectedAxes: axes,
		Description:  description,
	}
}

// RemapRecommendations 按查找表单遍改写建议中的问题引用
//
// 纯替换，幂等：空表时原样返回输入，不分配新集合
func RemapRecommendations(recs []models.Recommendation, remap map[string]string) []models.Recommendation {
	if len(remap) == 0 {
		return recs
	}

	out := make([]models.Recommendation, len(recs))
	for i, rec := range recs {
		if winner, ok := remap[rec.IssueID]; ok {
			rec.IssueID = winner
		}
		if len(rec.RelatedIssueIDs) > 0 {
			ids := make([]string, len(rec.RelatedIssueIDs))
			for j, id := range rec.RelatedIssueIDs {
				if winner, ok := remap[id]; ok {
					ids[j] = winner
					continue
				}
				ids[j] = id
			}
			rec.RelatedIssueIDs = ids
		}
		out[i] = rec
	}
	return out
}
