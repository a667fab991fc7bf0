package assess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
)

func defaultCalculator() *Calculator {
	return NewCalculator(config.Default().BaseSeverities())
}

func TestCalculate(t *testing.T) {
	calc := defaultCalculator()

	tests := []struct {
		name        string
		category    models.RiskCategory
		trigger     string
		description string
		wantSev     models.Severity
		wantTime    models.ResponseTime
	}{
		{"base only", models.CategoryRegulatoryChange, "New decree", "minor wording change", models.SeverityYellow, models.ResponsePriority},
		{"critical keyword forces red", models.CategoryBigTechThreat, "Big Tech Announces Brazil Investment", "Urgent: expansion announced", models.SeverityRed, models.ResponseImmediate},
		{"critical beats elevated", models.CategoryRegulatoryChange, "major change", "lawsuit filed", models.SeverityRed, models.ResponseImmediate},
		{"elevated bumps yellow", models.CategoryCompetitiveThreat, "Competitor", "a significant round", models.SeverityOrange, models.ResponseUrgent},
		{"elevated bumps orange", models.CategoryEconomicDownturn, "Budget", "large cuts expected", models.SeverityRed, models.ResponseImmediate},
		{"red stays red", models.CategorySecurityBreach, "Leak", "major", models.SeverityRed, models.ResponseImmediate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sev, rt := calc.Calculate(tt.category, tt.trigger, tt.description)
			assert.Equal(t, tt.wantSev, sev)
			assert.Equal(t, tt.wantTime, rt)
		})
	}
}

func TestCalculate_UnknownCategoryFallsBack(t *testing.T) {
	calc := NewCalculator(nil)

	sev, rt := calc.Calculate(models.CategoryOperationalRisk, "ops", "nothing notable")
	assert.Equal(t, models.SeverityYellow, sev)
	assert.Equal(t, models.ResponsePriority, rt)
}

func TestCalculate_GreenBumpsOneStep(t *testing.T) {
	calc := NewCalculator(map[models.RiskCategory]models.Severity{
		models.CategoryOperationalRisk: models.SeverityGreen,
	})

	sev, _ := calc.Calculate(models.CategoryOperationalRisk, "", "major incident")
	assert.Equal(t, models.SeverityYellow, sev)
}

func TestApplyFloor(t *testing.T) {
	assert.Equal(t, models.SeverityRed, ApplyFloor(models.SeverityYellow, models.SeverityRed))
	assert.Equal(t, models.SeverityRed, ApplyFloor(models.SeverityRed, models.SeverityOrange))
	assert.Equal(t, models.SeverityYellow, ApplyFloor(models.SeverityYellow, models.SeverityUnknown))
}

func TestPlan(t *testing.T) {
	p := NewActionPlanner()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	actions := p.Plan(models.CategoryBigTechThreat, models.SeverityOrange, now)
	require.Len(t, actions, 3)
	assert.Equal(t, "BT001", actions[0].ID)
	assert.Equal(t, now.Add(48*time.Hour), actions[0].Deadline)
	assert.Equal(t, models.ActionPending, actions[0].Status)

	assert.Empty(t, p.Plan(models.CategoryBigTechThreat, models.SeverityYellow, now))
	assert.Empty(t, p.Plan(models.CategoryCustomerConcentration, models.SeverityRed, now))

	sb := p.Plan(models.CategorySecurityBreach, models.SeverityRed, now)
	require.Len(t, sb, 2)
	assert.Equal(t, now.Add(6*time.Hour), sb[1].Deadline)
}

func TestPlan_ReturnsFreshSlices(t *testing.T) {
	p := NewActionPlanner()
	now := time.Now()

	first := p.Plan(models.CategoryRegulatoryChange, models.SeverityYellow, now)
	first[0].Status = models.ActionDone

	second := p.Plan(models.CategoryRegulatoryChange, models.SeverityYellow, now)
	assert.Equal(t, models.ActionPending, second[0].Status)
}
