package assess

import (
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

const day = 24 * time.Hour

type actionTemplate struct {
	id          string
	description string
	responsible string
	within      time.Duration
	priority    string
}

// playbooks holds the recommended actions per category. Big tech threats
// only get a playbook at Orange or above.
var playbooks = map[models.RiskCategory][]actionTemplate{
	models.CategoryBigTechThreat: {
		{"BT001", "Accelerate customer acquisition in threatened segments", "Sales Director", 48 * time.Hour, "Critical"},
		{"BT002", "Review and strengthen competitive positioning", "CEO", 24 * time.Hour, "Critical"},
		{"BT003", "Evaluate strategic partnership opportunities", "CEO", 7 * day, "High"},
	},
	models.CategoryRegulatoryChange: {
		{"RC001", "Assess compliance impact and requirements", "Legal Counsel", 48 * time.Hour, "High"},
		{"RC002", "Prepare compliance adaptation plan", "Operations Manager", 7 * day, "High"},
	},
	models.CategoryCompetitiveThreat: {
		{"CT001", "Analyze competitor capabilities and strategy", "Marketing Director", 3 * day, "Medium"},
		{"CT002", "Review pricing and value proposition", "Sales Director", 5 * day, "Medium"},
	},
	models.CategorySecurityBreach: {
		{"SB001", "Immediate security audit and vulnerability assessment", "CTO", 12 * time.Hour, "Critical"},
		{"SB002", "Customer communication and transparency plan", "CEO", 6 * time.Hour, "Critical"},
	},
	models.CategoryEconomicDownturn: {
		{"EC001", "Review cash runway and contract pipeline exposure", "CFO", 3 * day, "High"},
	},
	models.CategoryOperationalRisk: {
		{"OR001", "Run incident review and confirm service continuity", "Operations Manager", 48 * time.Hour, "Medium"},
	},
}

// ActionPlanner generates the recommended actions for new alerts.
type ActionPlanner struct{}

func NewActionPlanner() *ActionPlanner {
	return &ActionPlanner{}
}

// Plan returns pending actions with deadlines relative to now. Categories
// without a playbook get none.
func (p *ActionPlanner) Plan(category models.RiskCategory, severity models.Severity, now time.Time) []models.RecommendedAction {
	if category == models.CategoryBigTechThreat && severity < models.SeverityOrange {
		return nil
	}

	templates := playbooks[category]
	if len(templates) == 0 {
		return nil
	}

	actions := make([]models.RecommendedAction, 0, len(templates))
	for _, t := range templates {
		actions = append(actions, models.RecommendedAction{
			ID:               t.id,
			Description:      t.description,
			ResponsibleParty: t.responsible,
			Deadline:         now.Add(t.within),
			Priority:         t.priority,
			Status:           models.ActionPending,
		})
	}
	return actions
}
