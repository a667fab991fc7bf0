package notify

import (
	"fmt"
	"strings"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

var severityMarkers = map[models.Severity]string{
	models.SeverityRed:    "🔴",
	models.SeverityOrange: "🟠",
	models.SeverityYellow: "🟡",
	models.SeverityGreen:  "🟢",
}

// Subject is the one-line headline used by every channel.
func Subject(alert models.Alert) string {
	prefix := ""
	if alert.EscalationCount > 0 {
		prefix = fmt.Sprintf("[ESCALATED x%d] ", alert.EscalationCount)
	}
	return fmt.Sprintf("%s%s %s ALERT: %s", prefix, severityMarkers[alert.Severity], strings.ToUpper(alert.Severity.String()), alert.Trigger)
}

// Text renders a plain-text body listing the alert details and pending
// actions.
func Text(alert models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert: %s\n", alert.ID)
	fmt.Fprintf(&b, "Category: %s\n", alert.Category)
	fmt.Fprintf(&b, "Severity: %s\n", alert.Severity)
	fmt.Fprintf(&b, "Response: %s (within %s)\n", alert.Timeline, alert.Timeline.Deadline())
	if alert.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", alert.Description)
	}
	if alert.ImpactAssessment != "" {
		fmt.Fprintf(&b, "\nImpact: %s\n", alert.ImpactAssessment)
	}

	pending := 0
	for _, a := range alert.Actions {
		if a.Status != models.ActionPending {
			continue
		}
		if pending == 0 {
			b.WriteString("\nRecommended actions:\n")
		}
		pending++
		fmt.Fprintf(&b, "- [%s] %s (%s, due %s)\n", a.Priority, a.Description, a.ResponsibleParty, a.Deadline.UTC().Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}
