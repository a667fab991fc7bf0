package models

import (
	"slices"
	"time"
)

type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "Active"
	AlertStatusResolved  AlertStatus = "Resolved"
	AlertStatusCancelled AlertStatus = "Cancelled"
)

type ActionStatus string

const (
	ActionPending ActionStatus = "Pending"
	ActionDone    ActionStatus = "Done"
)

type Stakeholder struct {
	Name       string                    `json:"name"`
	Role       Role                      `json:"role"`
	Contacts   map[string]string         `json:"contacts"`   // channel kind -> address, e.g. "email" -> "ceo@company.com"
	Thresholds map[RiskCategory]Severity `json:"thresholds"` // not notified below this severity
}

// Contact returns the stakeholder address for a channel kind.
func (s Stakeholder) Contact(kind string) (string, bool) {
	addr, ok := s.Contacts[kind]
	return addr, ok && addr != ""
}

// Accepts reports whether the stakeholder wants alerts of this category at
// the given severity.
func (s Stakeholder) Accepts(category RiskCategory, severity Severity) bool {
	threshold, ok := s.Thresholds[category]
	if !ok {
		return true
	}
	return severity >= threshold
}

type RecommendedAction struct {
	ID               string
	Description      string
	ResponsibleParty string
	Deadline         time.Time
	Priority         string
	Status           ActionStatus
}

type Alert struct {
	ID               string
	Category         RiskCategory
	Severity         Severity
	Timeline         ResponseTime
	Trigger          string
	Description      string
	ImpactAssessment string
	Actions          []RecommendedAction
	Stakeholders     []Stakeholder
	Status           AlertStatus
	EscalationCount  int
	AutoGenerated    bool
	Source           string // poller name, or "manual"
	Resolution       string
	CreatedAt        time.Time
	LastUpdated      time.Time
	LastEscalatedAt  time.Time // zero until the first escalation
}

func (a *Alert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// HasStakeholder reports whether a stakeholder with the same role and name is
// already attached.
func (a *Alert) HasStakeholder(s Stakeholder) bool {
	return slices.ContainsFunc(a.Stakeholders, func(existing Stakeholder) bool {
		return existing.Role == s.Role && existing.Name == s.Name
	})
}

// Clone returns a deep copy so callers never share slices or maps with the
// registry.
func (a Alert) Clone() Alert {
	out := a
	if a.Actions != nil {
		out.Actions = slices.Clone(a.Actions)
	}
	if a.Stakeholders != nil {
		out.Stakeholders = make([]Stakeholder, len(a.Stakeholders))
		for i, s := range a.Stakeholders {
			out.Stakeholders[i] = s.Clone()
		}
	}
	return out
}

func (s Stakeholder) Clone() Stakeholder {
	out := s
	if s.Contacts != nil {
		out.Contacts = make(map[string]string, len(s.Contacts))
		for k, v := range s.Contacts {
			out.Contacts[k] = v
		}
	}
	if s.Thresholds != nil {
		out.Thresholds = make(map[RiskCategory]Severity, len(s.Thresholds))
		for k, v := range s.Thresholds {
			out.Thresholds[k] = v
		}
	}
	return out
}
