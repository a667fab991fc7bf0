package triggers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
)

// ErrMalformedEvent is returned for records that carry no text to evaluate.
var ErrMalformedEvent = errors.New("malformed event record")

var allFields = []string{"title", "content", "description"}

// Group matches when any keyword appears in any of its fields.
type Group struct {
	Fields        []string
	Keywords      []string
	CaseSensitive bool
}

func (g Group) matches(ev *models.EventRecord) bool {
	fields := g.Fields
	if len(fields) == 0 {
		fields = allFields
	}

	for _, f := range fields {
		text := ev.Field(f)
		if text == "" {
			continue
		}
		if !g.CaseSensitive {
			text = strings.ToLower(text)
		}
		for _, kw := range g.Keywords {
			if !g.CaseSensitive {
				kw = strings.ToLower(kw)
			}
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

// Trigger maps a keyword predicate to a risk category. Every group must
// match for the trigger to fire.
type Trigger struct {
	Name     string
	Category models.RiskCategory
	Floor    models.Severity // SeverityUnknown when unset
	Groups   []Group
}

func (t Trigger) Matches(ev *models.EventRecord) bool {
	if len(t.Groups) == 0 {
		return false
	}
	for _, g := range t.Groups {
		if !g.matches(ev) {
			return false
		}
	}
	return true
}

// Match is the result of a successful evaluation.
type Match struct {
	Trigger  string
	Category models.RiskCategory
	Floor    models.Severity
}

// Evaluator runs triggers in order and reports the first match.
type Evaluator struct {
	triggers []Trigger
}

func NewEvaluator(triggers []Trigger) *Evaluator {
	return &Evaluator{triggers: triggers}
}

// FromConfig builds triggers from their configuration, preserving order.
func FromConfig(cfgs []config.TriggerConfig) ([]Trigger, error) {
	out := make([]Trigger, 0, len(cfgs))
	for _, c := range cfgs {
		cat, err := models.ParseCategory(c.Category)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", c.Name, err)
		}

		t := Trigger{Name: c.Name, Category: cat}
		if c.Severity != "" {
			floor, err := models.ParseSeverity(c.Severity)
			if err != nil {
				return nil, fmt.Errorf("trigger %s: %w", c.Name, err)
			}
			t.Floor = floor
		}

		for _, g := range c.Groups {
			t.Groups = append(t.Groups, Group{
				Fields:        g.Fields,
				Keywords:      g.Keywords,
				CaseSensitive: g.CaseSensitive,
			})
		}
		out = append(out, t)
	}
	return out, nil
}

// Evaluate returns the first trigger matching ev. ok is false when nothing
// matched; the caller drops the event.
func (e *Evaluator) Evaluate(ev *models.EventRecord) (Match, bool, error) {
	if ev == nil || ev.Empty() {
		return Match{}, false, ErrMalformedEvent
	}

	for _, t := range e.triggers {
		if t.Matches(ev) {
			return Match{Trigger: t.Name, Category: t.Category, Floor: t.Floor}, true, nil
		}
	}

	slog.Debug("no trigger matched", "event_id", ev.ID, "source", ev.Source)
	return Match{}, false, nil
}

func (e *Evaluator) Len() int {
	return len(e.triggers)
}
