package escalation

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
	"github.com/mr1hm/go-risk-alerts/internal/stream"
)

const (
	DefaultInterval = 5 * time.Minute
	DefaultRedSLA   = 2 * time.Hour
)

// errNotDue aborts an Update when the alert no longer needs escalating.
var errNotDue = errors.New("alert not due for escalation")

type Dispatcher interface {
	Dispatch(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) []notify.ChannelResult
}

type Publisher interface {
	Publish(kind stream.EventKind, alert models.Alert)
}

type OversightSource interface {
	Oversight() []models.Stakeholder
}

type Options struct {
	Registry   *registry.Registry
	Dispatcher Dispatcher
	Publisher  Publisher // optional
	Oversight  OversightSource
	Clock      clock.Clock
	Interval   time.Duration
	RedSLA     time.Duration
}

// Supervisor periodically escalates alerts that outlived their response
// window.
type Supervisor struct {
	registry   *registry.Registry
	dispatcher Dispatcher
	publisher  Publisher
	oversight  OversightSource
	clock      clock.Clock
	interval   time.Duration
	redSLA     time.Duration
}

func NewSupervisor(opts Options) *Supervisor {
	s := &Supervisor{
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		publisher:  opts.Publisher,
		oversight:  opts.Oversight,
		clock:      opts.Clock,
		interval:   opts.Interval,
		redSLA:     opts.RedSLA,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.redSLA <= 0 {
		s.redSLA = DefaultRedSLA
	}
	return s
}

// Window returns how long an alert may wait before its next escalation.
// A Red alert that was already escalated gets the red SLA instead of its
// response deadline.
func Window(a models.Alert, redSLA time.Duration) time.Duration {
	if a.Severity == models.SeverityRed && a.EscalationCount > 0 {
		return redSLA
	}
	return models.ResponseTimeFor(a.Severity).Deadline()
}

// ReferenceTime is the last escalation, or creation if there was none.
func ReferenceTime(a models.Alert) time.Time {
	if !a.LastEscalatedAt.IsZero() {
		return a.LastEscalatedAt
	}
	return a.CreatedAt
}

// Due reports whether an active alert has outlived its window at now.
func Due(a models.Alert, now time.Time, redSLA time.Duration) bool {
	if !a.IsActive() {
		return false
	}
	return now.Sub(ReferenceTime(a)) > Window(a, redSLA)
}

// Escalate applies one escalation step to a at now.
func Escalate(a *models.Alert, now time.Time, oversight []models.Stakeholder) {
	a.Severity = a.Severity.Next()
	a.Timeline = models.ResponseTimeFor(a.Severity)
	a.EscalationCount++
	a.LastUpdated = now
	a.LastEscalatedAt = now

	for _, s := range oversight {
		if !a.HasStakeholder(s) {
			a.Stakeholders = append(a.Stakeholders, s.Clone())
		}
	}
}

func (s *Supervisor) Run(ctx context.Context) error {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	slog.Info("escalation supervisor started", "interval", s.interval, "red_sla", s.redSLA)

	for {
		select {
		case <-ctx.Done():
			slog.Info("escalation supervisor stopped")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep escalates every due alert once and returns how many were escalated.
func (s *Supervisor) Sweep(ctx context.Context) int {
	now := s.clock.Now()
	var oversight []models.Stakeholder
	if s.oversight != nil {
		oversight = s.oversight.Oversight()
	}

	escalated := 0
	for _, a := range s.registry.ListActive() {
		if ctx.Err() != nil {
			break
		}
		if !Due(a, now, s.redSLA) {
			continue
		}

		reason := fmt.Sprintf("no response within %s", Window(a, s.redSLA))
		updated, err := s.registry.Update(a.ID, func(cur *models.Alert) error {
			if !Due(*cur, now, s.redSLA) {
				return errNotDue
			}
			Escalate(cur, now, oversight)
			return nil
		})
		if errors.Is(err, errNotDue) {
			continue
		}
		if err != nil {
			slog.Error("failed to escalate alert", "alert_id", a.ID, "error", err)
			continue
		}

		escalated++
		escalationsTotal.WithLabelValues(string(updated.Category), updated.Severity.String()).Inc()
		slog.Warn("alert escalated",
			"alert_id", updated.ID,
			"reason", reason,
			"from", a.Severity.String(),
			"to", updated.Severity.String(),
			"escalation_count", updated.EscalationCount,
		)

		if s.publisher != nil {
			s.publisher.Publish(stream.EventEscalated, updated)
		}
		if s.dispatcher != nil {
			s.dispatcher.Dispatch(ctx, updated, updated.Stakeholders)
		}
	}

	if escalated > 0 {
		slog.Info("escalation sweep finished", "escalated", escalated)
	}
	return escalated
}
