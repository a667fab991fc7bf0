package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

// TimeFormat is used for every timestamp in a snapshot.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type actionRecord struct {
	ID               string              `json:"id"`
	Description      string              `json:"description"`
	ResponsibleParty string              `json:"responsible_party"`
	Deadline         string              `json:"deadline"`
	Priority         string              `json:"priority"`
	Status           models.ActionStatus `json:"status"`
}

type alertRecord struct {
	ID               string               `json:"id"`
	Category         models.RiskCategory  `json:"category"`
	Severity         models.Severity      `json:"severity"`
	Timeline         models.ResponseTime  `json:"timeline"`
	Trigger          string               `json:"trigger"`
	Description      string               `json:"description"`
	ImpactAssessment string               `json:"impact_assessment"`
	Actions          []actionRecord       `json:"actions"`
	Stakeholders     []models.Stakeholder `json:"stakeholders"`
	Status           models.AlertStatus   `json:"status"`
	EscalationCount  int                  `json:"escalation_count"`
	AutoGenerated    bool                 `json:"auto_generated"`
	Source           string               `json:"source,omitempty"`
	Resolution       string               `json:"resolution,omitempty"`
	CreatedAt        string               `json:"created_at"`
	LastUpdated      string               `json:"last_updated"`
	LastEscalatedAt  string               `json:"last_escalated_at,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormat)
}

func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return t.UTC(), nil
}

func toRecord(a models.Alert) alertRecord {
	rec := alertRecord{
		ID:               a.ID,
		Category:         a.Category,
		Severity:         a.Severity,
		Timeline:         a.Timeline,
		Trigger:          a.Trigger,
		Description:      a.Description,
		ImpactAssessment: a.ImpactAssessment,
		Stakeholders:     a.Stakeholders,
		Status:           a.Status,
		EscalationCount:  a.EscalationCount,
		AutoGenerated:    a.AutoGenerated,
		Source:           a.Source,
		Resolution:       a.Resolution,
		CreatedAt:        formatTime(a.CreatedAt),
		LastUpdated:      formatTime(a.LastUpdated),
		LastEscalatedAt:  formatTime(a.LastEscalatedAt),
	}
	if a.Actions != nil {
		rec.Actions = make([]actionRecord, len(a.Actions))
		for i, act := range a.Actions {
			rec.Actions[i] = actionRecord{
				ID:               act.ID,
				Description:      act.Description,
				ResponsibleParty: act.ResponsibleParty,
				Deadline:         formatTime(act.Deadline),
				Priority:         act.Priority,
				Status:           act.Status,
			}
		}
	}
	return rec
}

func fromRecord(rec alertRecord) (models.Alert, error) {
	a := models.Alert{
		ID:               rec.ID,
		Category:         rec.Category,
		Severity:         rec.Severity,
		Timeline:         rec.Timeline,
		Trigger:          rec.Trigger,
		Description:      rec.Description,
		ImpactAssessment: rec.ImpactAssessment,
		Stakeholders:     rec.Stakeholders,
		Status:           rec.Status,
		EscalationCount:  rec.EscalationCount,
		AutoGenerated:    rec.AutoGenerated,
		Source:           rec.Source,
		Resolution:       rec.Resolution,
	}

	var err error
	if a.CreatedAt, err = parseTime("created_at", rec.CreatedAt); err != nil {
		return a, err
	}
	if a.LastUpdated, err = parseTime("last_updated", rec.LastUpdated); err != nil {
		return a, err
	}
	if a.LastEscalatedAt, err = parseTime("last_escalated_at", rec.LastEscalatedAt); err != nil {
		return a, err
	}

	if rec.Actions != nil {
		a.Actions = make([]models.RecommendedAction, len(rec.Actions))
		for i, act := range rec.Actions {
			deadline, err := parseTime("deadline", act.Deadline)
			if err != nil {
				return a, err
			}
			a.Actions[i] = models.RecommendedAction{
				ID:               act.ID,
				Description:      act.Description,
				ResponsibleParty: act.ResponsibleParty,
				Deadline:         deadline,
				Priority:         act.Priority,
				Status:           act.Status,
			}
		}
	}
	return a, nil
}

// Export writes every alert as a JSON array ordered newest first.
func (r *Registry) Export(w io.Writer) error {
	alerts := r.List(Filter{})
	records := make([]alertRecord, len(alerts))
	for i, a := range alerts {
		records[i] = toRecord(a)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func (r *Registry) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Export(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import loads a snapshot into an empty registry. Nothing is stored if any
// record is invalid.
func (r *Registry) Import(rd io.Reader) (int, error) {
	var records []alertRecord
	if err := json.NewDecoder(rd).Decode(&records); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}

	loaded := make(map[string]*entry, len(records))
	for _, rec := range records {
		a, err := fromRecord(rec)
		if err != nil {
			return 0, fmt.Errorf("alert %s: %w", rec.ID, err)
		}
		a = normalize(a)
		if err := validate(&a); err != nil {
			return 0, err
		}
		if _, dup := loaded[a.ID]; dup {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
		}
		loaded[a.ID] = &entry{alert: a}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.alerts) > 0 {
		return 0, ErrNotEmpty
	}
	r.alerts = loaded
	return len(loaded), nil
}
