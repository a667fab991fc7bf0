package assess

import (
	"strings"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

var (
	criticalKeywords = []string{"immediate", "urgent", "crisis", "breach", "shutdown", "lawsuit"}
	elevatedKeywords = []string{"major", "significant", "large", "acquisition", "partnership"}
)

// fallbackSeverity applies to categories without a configured base.
const fallbackSeverity = models.SeverityYellow

// Calculator derives the initial severity and response time of an alert.
type Calculator struct {
	base map[models.RiskCategory]models.Severity
}

func NewCalculator(base map[models.RiskCategory]models.Severity) *Calculator {
	b := make(map[models.RiskCategory]models.Severity, len(base))
	for k, v := range base {
		b[k] = v
	}
	return &Calculator{base: b}
}

func (c *Calculator) Base(category models.RiskCategory) models.Severity {
	if sev, ok := c.base[category]; ok && sev.Valid() {
		return sev
	}
	return fallbackSeverity
}

// Calculate scans the trigger text and description for critical keywords,
// which force Red, and elevated keywords, which raise the base one step.
func (c *Calculator) Calculate(category models.RiskCategory, triggerText, description string) (models.Severity, models.ResponseTime) {
	sev := c.Base(category)
	text := strings.ToLower(triggerText + " " + description)

	switch {
	case containsAny(text, criticalKeywords):
		sev = models.SeverityRed
	case containsAny(text, elevatedKeywords):
		sev = sev.Next()
	}

	return sev, models.ResponseTimeFor(sev)
}

// ApplyFloor raises sev to floor when floor is set and higher.
func ApplyFloor(sev, floor models.Severity) models.Severity {
	if floor.Valid() && floor > sev {
		return floor
	}
	return sev
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
