package triggers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
)

func defaultEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	trs, err := FromConfig(config.DefaultTriggers())
	require.NoError(t, err)
	return NewEvaluator(trs)
}

func TestEvaluate_DefaultTriggers(t *testing.T) {
	ev := defaultEvaluator(t)

	tests := []struct {
		name    string
		record  models.EventRecord
		trigger string
		want    models.RiskCategory
	}{
		{
			name: "big tech brazil investment",
			record: models.EventRecord{
				Title:   "Google announces Brazil education investment",
				Content: "The deal includes a partnership with states and new investment in schools.",
			},
			trigger: "big_tech_announces_brazil_investment",
			want:    models.CategoryBigTechThreat,
		},
		{
			name: "regulatory proposal",
			record: models.EventRecord{
				Title:   "Congresso",
				Content: "Novo projeto de Lei sobre EdTech nas escolas públicas",
			},
			trigger: "new_regulatory_proposal_affecting_edtech",
			want:    models.CategoryRegulatoryChange,
		},
		{
			name: "competitor funding",
			record: models.EventRecord{
				Title:   "Competitor round",
				Content: "An edtech startup closed Series C funding of $100M.",
			},
			trigger: "major_competitor_raises_funding_50m_plus",
			want:    models.CategoryCompetitiveThreat,
		},
		{
			name: "security breach in description",
			record: models.EventRecord{
				Title:       "Incident",
				Description: "Ransomware hits school district systems",
			},
			trigger: "security_breach_in_education_sector",
			want:    models.CategorySecurityBreach,
		},
		{
			name: "budget cuts",
			record: models.EventRecord{
				Content: "Governo anuncia contingenciamento no orçamento",
			},
			trigger: "economic_indicators_suggest_budget_cuts",
			want:    models.CategoryEconomicDownturn,
		},
		{
			name: "paradigm shift",
			record: models.EventRecord{
				Title: "ChatGPT enters the classroom",
			},
			trigger: "technology_paradigm_shift_detected",
			want:    models.CategoryTechnologyDisruption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := ev.Evaluate(&tt.record)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.trigger, m.Trigger)
			assert.Equal(t, tt.want, m.Category)
		})
	}
}

func TestEvaluate_CaseSensitiveProperNouns(t *testing.T) {
	ev := defaultEvaluator(t)

	// "apple" in lower case is not the company
	_, ok, err := ev.Evaluate(&models.EventRecord{
		Title:   "apple harvest in Brazil",
		Content: "Brazil sees investment in agriculture",
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_NoMatch(t *testing.T) {
	ev := defaultEvaluator(t)

	m, ok, err := ev.Evaluate(&models.EventRecord{Title: "Local football results", Content: "3-1"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, m.Trigger)
}

func TestEvaluate_MalformedEvent(t *testing.T) {
	ev := defaultEvaluator(t)

	_, ok, err := ev.Evaluate(&models.EventRecord{Title: "  ", Content: ""})
	assert.ErrorIs(t, err, ErrMalformedEvent)
	assert.False(t, ok)

	_, _, err = ev.Evaluate(nil)
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	ev := NewEvaluator([]Trigger{
		{Name: "first", Category: models.CategoryOperationalRisk, Groups: []Group{{Keywords: []string{"outage"}}}},
		{Name: "second", Category: models.CategorySecurityBreach, Groups: []Group{{Keywords: []string{"outage"}}}},
	})

	m, ok, err := ev.Evaluate(&models.EventRecord{Content: "Major OUTAGE reported"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", m.Trigger)
}

func TestFromConfig(t *testing.T) {
	trs, err := FromConfig([]config.TriggerConfig{{
		Name:     "floor",
		Category: "OperationalRisk",
		Severity: "Orange",
		Groups:   []config.KeywordGroup{{Keywords: []string{"x"}}},
	}})
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, models.SeverityOrange, trs[0].Floor)
	assert.Equal(t, 1, NewEvaluator(trs).Len())

	_, err = FromConfig([]config.TriggerConfig{{Name: "bad", Category: "Weather"}})
	assert.Error(t, err)
}
