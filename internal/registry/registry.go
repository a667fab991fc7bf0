package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

var (
	ErrNotFound    = errors.New("alert not found")
	ErrDuplicateID = errors.New("duplicate alert id")
	ErrInvariant   = errors.New("alert invariant violated")
	ErrNotEmpty    = errors.New("registry is not empty")
)

type entry struct {
	mu    sync.Mutex
	alert models.Alert
}

// Registry is the in-memory store of alerts. The map is guarded by an
// RWMutex and every alert by its own mutex, so updates to different alerts
// never contend.
type Registry struct {
	mu     sync.RWMutex
	alerts map[string]*entry
}

func New() *Registry {
	return &Registry{alerts: make(map[string]*entry)}
}

type Filter struct {
	Status      models.AlertStatus
	Category    models.RiskCategory
	MinSeverity models.Severity
	Limit       int
}

func (f Filter) matches(a *models.Alert) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.MinSeverity != models.SeverityUnknown && a.Severity < f.MinSeverity {
		return false
	}
	return true
}

// Create stores a copy of a and returns its id.
func (r *Registry) Create(a models.Alert) (string, error) {
	a = normalize(a.Clone())
	if err := validate(&a); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[a.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}
	r.alerts[a.ID] = &entry{alert: a}
	return a.ID, nil
}

func (r *Registry) Get(id string) (models.Alert, error) {
	e, ok := r.lookup(id)
	if !ok {
		return models.Alert{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alert.Clone(), nil
}

// List returns copies of matching alerts, newest first.
func (r *Registry) List(f Filter) []models.Alert {
	var out []models.Alert
	for _, e := range r.entries() {
		e.mu.Lock()
		if f.matches(&e.alert) {
			out = append(out, e.alert.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (r *Registry) ListActive() []models.Alert {
	return r.List(Filter{Status: models.AlertStatusActive})
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alerts)
}

// Update runs fn on a private copy of the alert while holding its lock. The
// copy replaces the stored alert only if fn returns nil and the result
// still satisfies the alert invariants.
func (r *Registry) Update(id string, fn func(a *models.Alert) error) (models.Alert, error) {
	e, ok := r.lookup(id)
	if !ok {
		return models.Alert{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.alert.Clone()
	if err := fn(&next); err != nil {
		return models.Alert{}, err
	}
	next = normalize(next)

	if err := checkTransition(&e.alert, &next); err != nil {
		return models.Alert{}, err
	}

	e.alert = next
	return next.Clone(), nil
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.alerts[id]
	return e, ok
}

func (r *Registry) entries() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.alerts))
	for _, e := range r.alerts {
		out = append(out, e)
	}
	return out
}

func normalize(a models.Alert) models.Alert {
	a.CreatedAt = utc(a.CreatedAt)
	a.LastUpdated = utc(a.LastUpdated)
	a.LastEscalatedAt = utc(a.LastEscalatedAt)
	for i := range a.Actions {
		a.Actions[i].Deadline = utc(a.Actions[i].Deadline)
	}
	return a
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

func invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

func validate(a *models.Alert) error {
	switch {
	case a.ID == "":
		return invariant("id is empty")
	case !a.Category.Valid():
		return invariant("unknown category %q", a.Category)
	case !a.Severity.Valid():
		return invariant("invalid severity %d", int(a.Severity))
	case len(a.Stakeholders) == 0:
		return invariant("alert %s has no stakeholders", a.ID)
	case a.CreatedAt.IsZero():
		return invariant("alert %s has no creation time", a.ID)
	case a.LastUpdated.Before(a.CreatedAt):
		return invariant("alert %s last_updated before created_at", a.ID)
	case a.EscalationCount < 0:
		return invariant("alert %s has negative escalation count", a.ID)
	}

	switch a.Status {
	case models.AlertStatusActive, models.AlertStatusResolved, models.AlertStatusCancelled:
	default:
		return invariant("alert %s has unknown status %q", a.ID, a.Status)
	}
	return nil
}

func checkTransition(prev, next *models.Alert) error {
	if err := validate(next); err != nil {
		return err
	}
	switch {
	case next.ID != prev.ID:
		return invariant("id changed from %s to %s", prev.ID, next.ID)
	case !next.CreatedAt.Equal(prev.CreatedAt):
		return invariant("alert %s created_at changed", prev.ID)
	case next.EscalationCount < prev.EscalationCount:
		return invariant("alert %s escalation count decreased", prev.ID)
	case !prev.IsActive() && next.Status != prev.Status:
		return invariant("alert %s is %s and cannot change status", prev.ID, prev.Status)
	case prev.IsActive() && next.IsActive() && next.Severity < prev.Severity:
		return invariant("alert %s severity decreased from %s to %s", prev.ID, prev.Severity, next.Severity)
	}
	return nil
}
