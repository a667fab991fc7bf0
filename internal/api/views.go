package api

import (
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

type ActionView struct {
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	ResponsibleParty string    `json:"responsible_party"`
	Deadline         time.Time `json:"deadline"`
	Priority         string    `json:"priority"`
	Status           string    `json:"status"`
}

type StakeholderView struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type AlertView struct {
	ID               string            `json:"id"`
	Category         string            `json:"category"`
	Severity         string            `json:"severity"`
	Timeline         string            `json:"timeline"`
	Trigger          string            `json:"trigger"`
	Description      string            `json:"description"`
	ImpactAssessment string            `json:"impact_assessment"`
	Actions          []ActionView      `json:"recommended_actions"`
	Stakeholders     []StakeholderView `json:"stakeholders"`
	Status           string            `json:"status"`
	EscalationCount  int               `json:"escalation_count"`
	AutoGenerated    bool              `json:"auto_generated"`
	Source           string            `json:"source"`
	Resolution       string            `json:"resolution,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	LastUpdated      time.Time         `json:"last_updated"`
	LastEscalatedAt  *time.Time        `json:"last_escalated_at,omitempty"`
}

type AlertList struct {
	Count  int         `json:"count"`
	Alerts []AlertView `json:"alerts"`
}

func toAlertView(a models.Alert) AlertView {
	v := AlertView{
		ID:               a.ID,
		Category:         string(a.Category),
		Severity:         a.Severity.String(),
		Timeline:         string(a.Timeline),
		Trigger:          a.Trigger,
		Description:      a.Description,
		ImpactAssessment: a.ImpactAssessment,
		Actions:          make([]ActionView, 0, len(a.Actions)),
		Stakeholders:     make([]StakeholderView, 0, len(a.Stakeholders)),
		Status:           string(a.Status),
		EscalationCount:  a.EscalationCount,
		AutoGenerated:    a.AutoGenerated,
		Source:           a.Source,
		Resolution:       a.Resolution,
		CreatedAt:        a.CreatedAt,
		LastUpdated:      a.LastUpdated,
	}

	if !a.LastEscalatedAt.IsZero() {
		t := a.LastEscalatedAt
		v.LastEscalatedAt = &t
	}

	for _, act := range a.Actions {
		v.Actions = append(v.Actions, ActionView{
			ID:               act.ID,
			Description:      act.Description,
			ResponsibleParty: act.ResponsibleParty,
			Deadline:         act.Deadline,
			Priority:         act.Priority,
			Status:           string(act.Status),
		})
	}
	for _, s := range a.Stakeholders {
		v.Stakeholders = append(v.Stakeholders, StakeholderView{Name: s.Name, Role: string(s.Role)})
	}
	return v
}

func toAlertList(alerts []models.Alert) AlertList {
	views := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, toAlertView(a))
	}
	return AlertList{Count: len(views), Alerts: views}
}
