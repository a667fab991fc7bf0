package alerting

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/mr1hm/go-risk-alerts/internal/assess"
	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/routing"
)

var ErrInvalidRequest = errors.New("invalid alert request")

// Request describes an alert to create. Severity and Actions are optional;
// when unset they are derived from the category and text.
type Request struct {
	Category    models.RiskCategory
	Trigger     string
	Description string
	Impact      string
	Severity    models.Severity
	Floor       models.Severity
	Actions     []models.RecommendedAction
	Source      string
	Auto        bool
}

// Factory turns requests into complete alerts. Automatic and manual alerts
// both go through Build.
type Factory struct {
	calculator *assess.Calculator
	planner    *assess.ActionPlanner
	router     *routing.Router
	clock      clock.Clock
	newID      func() string
}

func NewFactory(calc *assess.Calculator, planner *assess.ActionPlanner, router *routing.Router, clk clock.Clock) *Factory {
	if clk == nil {
		clk = clock.New()
	}
	return &Factory{
		calculator: calc,
		planner:    planner,
		router:     router,
		clock:      clk,
		newID:      func() string { return "alert_" + uuid.NewString() },
	}
}

func (f *Factory) Build(req Request) (models.Alert, error) {
	if !req.Category.Valid() {
		return models.Alert{}, fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, req.Category)
	}
	if strings.TrimSpace(req.Trigger) == "" {
		return models.Alert{}, fmt.Errorf("%w: trigger is required", ErrInvalidRequest)
	}
	if req.Severity != models.SeverityUnknown && !req.Severity.Valid() {
		return models.Alert{}, fmt.Errorf("%w: invalid severity", ErrInvalidRequest)
	}

	sev := req.Severity
	if sev == models.SeverityUnknown {
		sev, _ = f.calculator.Calculate(req.Category, req.Trigger, req.Description)
	}
	sev = assess.ApplyFloor(sev, req.Floor)

	now := f.clock.Now().UTC()

	actions := req.Actions
	if len(actions) == 0 {
		actions = f.planner.Plan(req.Category, sev, now)
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}

	return models.Alert{
		ID:               f.newID(),
		Category:         req.Category,
		Severity:         sev,
		Timeline:         models.ResponseTimeFor(sev),
		Trigger:          req.Trigger,
		Description:      req.Description,
		ImpactAssessment: req.Impact,
		Actions:          actions,
		Stakeholders:     f.router.Route(req.Category, sev),
		Status:           models.AlertStatusActive,
		AutoGenerated:    req.Auto,
		Source:           source,
		CreatedAt:        now,
		LastUpdated:      now,
	}, nil
}

// TriggerTitle turns a trigger name such as "big_tech_announces_brazil_investment"
// into "Big Tech Announces Brazil Investment".
func TriggerTitle(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || unicode.IsSpace(r) })
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
