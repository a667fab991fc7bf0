package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/notify"
	"github.com/mr1hm/go-risk-alerts/internal/registry"
	"github.com/mr1hm/go-risk-alerts/internal/repository"
	"github.com/mr1hm/go-risk-alerts/internal/stream"
	"github.com/mr1hm/go-risk-alerts/internal/triggers"
)

var (
	ErrNotActive      = errors.New("alert is not active")
	ErrActionNotFound = errors.New("action not found")
)

type Dispatcher interface {
	Dispatch(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) []notify.ChannelResult
}

type Publisher interface {
	Publish(kind stream.EventKind, alert models.Alert)
}

type Options struct {
	Evaluator  *triggers.Evaluator
	Factory    *Factory
	Registry   *registry.Registry
	Dispatcher Dispatcher
	Publisher  Publisher           // optional
	EventLog   repository.EventLog // optional, drops records already seen
	Clock      clock.Clock
}

// Service runs the alert pipeline and the manual alert operations.
type Service struct {
	evaluator  *triggers.Evaluator
	factory    *Factory
	registry   *registry.Registry
	dispatcher Dispatcher
	publisher  Publisher
	eventLog   repository.EventLog
	clock      clock.Clock
}

func NewService(opts Options) *Service {
	s := &Service{
		evaluator:  opts.Evaluator,
		factory:    opts.Factory,
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		publisher:  opts.Publisher,
		eventLog:   opts.EventLog,
		clock:      opts.Clock,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	return s
}

// ProcessEvent evaluates one record and creates an alert if a trigger
// matches. A nil alert with a nil error means the record was dropped.
func (s *Service) ProcessEvent(ctx context.Context, ev *models.EventRecord) (*models.Alert, error) {
	match, ok, err := s.evaluator.Evaluate(ev)
	if err != nil {
		eventsEvaluated.WithLabelValues("malformed").Inc()
		return nil, err
	}
	if !ok {
		eventsEvaluated.WithLabelValues("unmatched").Inc()
		return nil, nil
	}

	marked := false
	if s.eventLog != nil && ev.ID != "" {
		fresh, err := s.eventLog.MarkSeen(ctx, ev.Source, ev.ID, s.clock.Now())
		switch {
		case err != nil:
			slog.Warn("failed to record event", "event_id", ev.ID, "error", err)
		case !fresh:
			eventsEvaluated.WithLabelValues("duplicate").Inc()
			slog.Debug("event already processed", "event_id", ev.ID, "source", ev.Source)
			return nil, nil
		default:
			marked = true
		}
	}

	eventsEvaluated.WithLabelValues("matched").Inc()
	slog.Info("trigger condition met", "trigger", match.Trigger, "category", match.Category, "source", ev.Source)

	description := ev.Description
	if description == "" {
		description = "Triggered by: " + match.Trigger
	}
	impact := ev.Impact
	if impact == "" {
		impact = "Impact assessment pending"
	}

	alert, err := s.create(ctx, Request{
		Category:    match.Category,
		Trigger:     TriggerTitle(match.Trigger),
		Description: description,
		Impact:      impact,
		Floor:       match.Floor,
		Source:      ev.Source,
		Auto:        true,
	})
	if err != nil {
		// a later poll of the same record gets another attempt
		if marked {
			if ferr := s.eventLog.ForgetEvent(context.WithoutCancel(ctx), ev.Source, ev.ID); ferr != nil {
				slog.Warn("failed to release event", "event_id", ev.ID, "error", ferr)
			}
		}
		return nil, err
	}
	return &alert, nil
}

// CreateAlert creates a manual alert.
func (s *Service) CreateAlert(ctx context.Context, req Request) (models.Alert, error) {
	req.Auto = false
	return s.create(ctx, req)
}

func (s *Service) create(ctx context.Context, req Request) (models.Alert, error) {
	alert, err := s.factory.Build(req)
	if err != nil {
		return models.Alert{}, err
	}

	if _, err := s.registry.Create(alert); err != nil {
		return models.Alert{}, fmt.Errorf("store alert: %w", err)
	}

	origin := "manual"
	if alert.AutoGenerated {
		origin = "trigger"
	}
	alertsCreated.WithLabelValues(string(alert.Category), alert.Severity.String(), origin).Inc()
	slog.Info("alert created",
		"alert_id", alert.ID,
		"category", alert.Category,
		"severity", alert.Severity.String(),
		"timeline", alert.Timeline,
		"stakeholders", len(alert.Stakeholders),
	)

	if s.publisher != nil {
		s.publisher.Publish(stream.EventCreated, alert)
	}
	// the alert is stored; delivery outlives the caller's context
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(context.WithoutCancel(ctx), alert, alert.Stakeholders)
	}
	return alert, nil
}

func (s *Service) Resolve(ctx context.Context, id, resolution string) (models.Alert, error) {
	return s.close(id, models.AlertStatusResolved, resolution, stream.EventResolved)
}

func (s *Service) Cancel(ctx context.Context, id, reason string) (models.Alert, error) {
	return s.close(id, models.AlertStatusCancelled, reason, stream.EventCancelled)
}

func (s *Service) close(id string, status models.AlertStatus, note string, kind stream.EventKind) (models.Alert, error) {
	now := s.clock.Now()
	alert, err := s.registry.Update(id, func(a *models.Alert) error {
		if !a.IsActive() {
			return fmt.Errorf("%w: %s is %s", ErrNotActive, a.ID, a.Status)
		}
		a.Status = status
		a.Resolution = note
		a.LastUpdated = now
		return nil
	})
	if err != nil {
		return models.Alert{}, err
	}

	alertsClosed.WithLabelValues(string(status)).Inc()
	slog.Info("alert closed", "alert_id", id, "status", status)
	if s.publisher != nil {
		s.publisher.Publish(kind, alert)
	}
	return alert, nil
}

// CompleteAction marks a recommended action as done.
func (s *Service) CompleteAction(ctx context.Context, id, actionID string) (models.Alert, error) {
	now := s.clock.Now()
	alert, err := s.registry.Update(id, func(a *models.Alert) error {
		if !a.IsActive() {
			return fmt.Errorf("%w: %s is %s", ErrNotActive, a.ID, a.Status)
		}
		for i := range a.Actions {
			if a.Actions[i].ID == actionID {
				a.Actions[i].Status = models.ActionDone
				a.LastUpdated = now
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	})
	if err != nil {
		return models.Alert{}, err
	}

	if s.publisher != nil {
		s.publisher.Publish(stream.EventUpdated, alert)
	}
	return alert, nil
}

func (s *Service) Get(id string) (models.Alert, error) {
	return s.registry.Get(id)
}

func (s *Service) List(f registry.Filter) []models.Alert {
	return s.registry.List(f)
}

// Summary is the dashboard view of the registry.
type Summary struct {
	TotalActive    int            `json:"total_active_alerts"`
	BySeverity     map[string]int `json:"alerts_by_severity"`
	ByCategory     map[string]int `json:"alerts_by_category"`
	CreatedToday   int            `json:"total_alerts_today"`
	Escalated      int            `json:"escalated_alerts"`
	PendingActions int            `json:"pending_actions"`
	LastUpdated    time.Time      `json:"last_updated"`
}

func (s *Service) Summary() Summary {
	now := s.clock.Now().UTC()
	sum := Summary{
		BySeverity:  make(map[string]int),
		ByCategory:  make(map[string]int),
		LastUpdated: now,
	}
	for _, sev := range []models.Severity{models.SeverityGreen, models.SeverityYellow, models.SeverityOrange, models.SeverityRed} {
		sum.BySeverity[sev.String()] = 0
	}
	for _, c := range models.Categories {
		sum.ByCategory[string(c)] = 0
	}

	y, m, d := now.Date()
	for _, a := range s.registry.List(registry.Filter{}) {
		cy, cm, cd := a.CreatedAt.UTC().Date()
		if cy == y && cm == m && cd == d {
			sum.CreatedToday++
		}
		if !a.IsActive() {
			continue
		}
		sum.TotalActive++
		sum.BySeverity[a.Severity.String()]++
		sum.ByCategory[string(a.Category)]++
		if a.EscalationCount > 0 {
			sum.Escalated++
		}
		for _, act := range a.Actions {
			if act.Status == models.ActionPending {
				sum.PendingActions++
			}
		}
	}
	return sum
}
