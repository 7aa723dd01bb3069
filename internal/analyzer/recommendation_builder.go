package analyzer

import (
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"

	"github.com/google/uuid"
)

// recommendationTemplate 按问题类型的建议模板
type recommendationTemplate struct {
	Category string
	Title    string
	Action   string
	Commands []string
}

var recommendationTemplates = map[models.IssueType]recommendationTemplate{
	models.IssueBounceback: {
		Category: "pid",
		Title:    "Reduce bounceback after flips and rolls",
		Action:   "Enable I-term relax on roll and pitch so the I-term stops winding up during fast moves.",
		Commands: []string{"set iterm_relax = RP", "set iterm_relax_cutoff = 15"},
	},
	models.IssuePropwash: {
		Category: "pid",
		Title:    "Tame propwash oscillation",
		Action:   "Raise D slightly on the affected axis and enable dynamic idle to keep props loaded during throttle chops.",
		Commands: []string{"set dyn_idle_min_rpm = 30"},
	},
	models.IssueFrameResonance: {
		Category: "hardware",
		Title:    "Frame resonance detected",
		Action:   "Check frame screws and standoffs, soft-mount the flight controller, and widen the dynamic notch.",
		Commands: []string{"set dyn_notch_count = 2", "set dyn_notch_q = 250"},
	},
	models.IssueBearingNoise: {
		Category: "hardware",
		Title:    "Possible worn motor bearings",
		Action:   "Spin each motor by hand and listen for grinding; replace bearings or the motor on the worst corner.",
	},
	models.IssueElectricalNoise: {
		Category: "hardware",
		Title:    "Elevated gyro noise floor",
		Action:   "Check gyro power filtering and wiring routing; a low-ESR capacitor on the battery leads usually helps.",
		Commands: []string{"set gyro_lowpass2_hz = 250"},
	},
	models.IssueDTermNoise: {
		Category: "filter",
		Title:    "Noisy D-term",
		Action:   "Lower the D-term lowpass cutoffs before raising D any further, or the motors will run hot.",
		Commands: []string{"set dterm_lowpass2_hz = 150"},
	},
	models.IssueMotorHealth: {
		Category: "hardware",
		Title:    "Motor output saturation",
		Action:   "Inspect the called-out motor and prop for damage; persistent saturation also responds to lowering the master multiplier.",
	},
	models.IssueEscDesync: {
		Category: "hardware",
		Title:    "Possible ESC desync",
		Action:   "Raise the idle value and verify motor timing settings in the ESC firmware.",
		Commands: []string{"set dshot_idle_value = 450"},
	},
	models.IssueVoltageSag: {
		Category: "power",
		Title:    "Heavy voltage sag under load",
		Action:   "Use a fresher pack or one with a higher C rating; check the battery connector for resistance.",
	},
	models.IssueCGOffset: {
		Category: "hardware",
		Title:    "Center of gravity offset",
		Action:   "Shift the battery toward the geometric center until hover motor outputs balance out.",
	},
	models.IssueTrackingError: {
		Category: "pid",
		Title:    "Poor setpoint tracking",
		Action:   "Raise P (or feedforward) on the affected axis until the gyro trace follows the setpoint closely.",
	},
}

// buildRecommendations 为每个出现的问题类型生成一条建议
//
// 主引用 IssueID 指向该类型中最严重（持平取置信度最高）的问题，
// 其余同类型问题挂在 RelatedIssueIDs 上；
// 该引用关系由后续合并阶段的重映射表负责保持一致
func buildRecommendations(issues []models.DetectedIssue) []models.Recommendation {
	if len(issues) == 0 {
		return nil
	}

	var typeOrder []models.IssueType
	byType := make(map[models.IssueType][]models.DetectedIssue)
	for _, issue := range issues {
		if _, ok := byType[issue.Type]; !ok {
			typeOrder = append(typeOrder, issue.Type)
		}
		byType[issue.Type] = append(byType[issue.Type], issue)
	}

	var recs []models.Recommendation
	for _, typ := range typeOrder {
		tpl, ok := recommendationTemplates[typ]
		if !ok {
			continue
		}

		group := byType[typ]
		primary := group[0]
		for _, cand := range group[1:] {
			if cand.Severity > primary.Severity ||
				(cand.Severity == primary.Severity && cand.Confidence > primary.Confidence) {
				primary = cand
			}
		}

		var related []string
		for _, issue := range group {
			if issue.ID != primary.ID {
				related = append(related, issue.ID)
			}
		}

		recs = append(recs, models.Recommendation{
			ID:              uuid.New().String(),
			IssueID:         primary.ID,
			RelatedIssueIDs: related,
			Category:        tpl.Category,
			Title:           tpl.Title,
			Action:          tpl.Action,
			Commands:        tpl.Commands,
		})
	}
	return recs
}
