package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/notify"
	"github.com/mr1hm/go-risk-alerts/internal/registry"
	"github.com/mr1hm/go-risk-alerts/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockDispatcher struct {
	mu    sync.Mutex
	calls []models.Alert
}

func (m *mockDispatcher) Dispatch(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) []notify.ChannelResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, alert)
	return nil
}

func (m *mockDispatcher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockPublisher struct {
	mu    sync.Mutex
	kinds []stream.EventKind
}

func (m *mockPublisher) Publish(kind stream.EventKind, alert models.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
}

type staticOversight []models.Stakeholder

func (s staticOversight) Oversight() []models.Stakeholder { return s }

var board = models.Stakeholder{Name: "Board of Directors", Role: models.RoleBoard}

type fixture struct {
	clock      *clock.Mock
	registry   *registry.Registry
	dispatcher *mockDispatcher
	publisher  *mockPublisher
	supervisor *Supervisor
}

func newFixture() *fixture {
	f := &fixture{
		clock:      clock.NewMock(),
		registry:   registry.New(),
		dispatcher: &mockDispatcher{},
		publisher:  &mockPublisher{},
	}
	f.supervisor = NewSupervisor(Options{
		Registry:   f.registry,
		Dispatcher: f.dispatcher,
		Publisher:  f.publisher,
		Oversight:  staticOversight{board},
		Clock:      f.clock,
	})
	return f
}

func (f *fixture) create(t *testing.T, id string, sev models.Severity) {
	t.Helper()
	now := f.clock.Now()
	_, err := f.registry.Create(models.Alert{
		ID:           id,
		Category:     models.CategoryBigTechThreat,
		Severity:     sev,
		Timeline:     models.ResponseTimeFor(sev),
		Stakeholders: []models.Stakeholder{{Name: "Chief Executive Officer", Role: models.RoleCEO}},
		Status:       models.AlertStatusActive,
		CreatedAt:    now,
		LastUpdated:  now,
	})
	require.NoError(t, err)
}

func TestSweep_OrangeEscalatesAfterDeadline(t *testing.T) {
	f := newFixture()
	f.create(t, "a1", models.SeverityOrange)

	f.clock.Add(5 * time.Hour)
	n := f.supervisor.Sweep(context.Background())
	assert.Equal(t, 1, n)

	got, err := f.registry.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, models.SeverityRed, got.Severity)
	assert.Equal(t, models.ResponseImmediate, got.Timeline)
	assert.Equal(t, 1, got.EscalationCount)
	assert.True(t, got.LastEscalatedAt.Equal(f.clock.Now()))
	assert.True(t, got.LastUpdated.Equal(f.clock.Now()))
	assert.True(t, got.HasStakeholder(board))

	assert.Equal(t, 1, f.dispatcher.count())
	assert.Equal(t, []stream.EventKind{stream.EventEscalated}, f.publisher.kinds)
}

func TestSweep_NotDueBeforeDeadline(t *testing.T) {
	f := newFixture()
	f.create(t, "a1", models.SeverityOrange)

	f.clock.Add(3 * time.Hour)
	assert.Equal(t, 0, f.supervisor.Sweep(context.Background()))

	got, _ := f.registry.Get("a1")
	assert.Equal(t, models.SeverityOrange, got.Severity)
	assert.Equal(t, 0, f.dispatcher.count())
}

func TestSweep_NoCascadeWithinOneSweep(t *testing.T) {
	f := newFixture()
	f.create(t, "a1", models.SeverityYellow)

	// far past every window, still only one step per sweep
	f.clock.Add(100 * time.Hour)
	f.supervisor.Sweep(context.Background())

	got, _ := f.registry.Get("a1")
	assert.Equal(t, models.SeverityOrange, got.Severity)
	assert.Equal(t, 1, got.EscalationCount)

	// the next window starts from the escalation
	f.clock.Add(3 * time.Hour)
	f.supervisor.Sweep(context.Background())
	got, _ = f.registry.Get("a1")
	assert.Equal(t, models.SeverityOrange, got.Severity)

	f.clock.Add(2 * time.Hour)
	f.supervisor.Sweep(context.Background())
	got, _ = f.registry.Get("a1")
	assert.Equal(t, models.SeverityRed, got.Severity)
	assert.Equal(t, 2, got.EscalationCount)
}

func TestSweep_RedUsesSLAAfterFirstEscalation(t *testing.T) {
	f := newFixture()
	f.create(t, "a1", models.SeverityRed)

	f.clock.Add(90 * time.Minute)
	f.supervisor.Sweep(context.Background())
	got, _ := f.registry.Get("a1")
	assert.Equal(t, 1, got.EscalationCount)
	assert.Equal(t, models.SeverityRed, got.Severity)

	// one hour later: inside the red SLA
	f.clock.Add(time.Hour)
	f.supervisor.Sweep(context.Background())
	got, _ = f.registry.Get("a1")
	assert.Equal(t, 1, got.EscalationCount)

	f.clock.Add(90 * time.Minute)
	f.supervisor.Sweep(context.Background())
	got, _ = f.registry.Get("a1")
	assert.Equal(t, 2, got.EscalationCount)
	assert.Len(t, got.Stakeholders, 2, "oversight added only once")
}

func TestSweep_SkipsTerminalAlerts(t *testing.T) {
	f := newFixture()
	f.create(t, "a1", models.SeverityOrange)
	_, err := f.registry.Update("a1", func(a *models.Alert) error {
		a.Status = models.AlertStatusResolved
		return nil
	})
	require.NoError(t, err)

	f.clock.Add(10 * time.Hour)
	assert.Equal(t, 0, f.supervisor.Sweep(context.Background()))
	assert.Equal(t, 0, f.dispatcher.count())
}

func TestSweep_SeverityNeverDecreases(t *testing.T) {
	f := newFixture()
	f.create(t, "a1", models.SeverityGreen)

	prev := models.SeverityGreen
	for i := 0; i < 10; i++ {
		f.clock.Add(80 * time.Hour)
		f.supervisor.Sweep(context.Background())
		got, err := f.registry.Get("a1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Severity, prev)
		prev = got.Severity
	}
	assert.Equal(t, models.SeverityRed, prev)
}

func TestRun_TicksWithClock(t *testing.T) {
	f := newFixture()
	f.create(t, "a1", models.SeverityOrange)
	f.clock.Add(5 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.supervisor.Run(ctx) }()

	require.Eventually(t, func() bool {
		f.clock.Add(DefaultInterval)
		return f.dispatcher.count() > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDue(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := models.Alert{Severity: models.SeverityYellow, Status: models.AlertStatusActive, CreatedAt: created}

	assert.False(t, Due(a, created.Add(24*time.Hour), DefaultRedSLA), "window is exclusive")
	assert.True(t, Due(a, created.Add(24*time.Hour+time.Second), DefaultRedSLA))

	a.Status = models.AlertStatusCancelled
	assert.False(t, Due(a, created.Add(100*time.Hour), DefaultRedSLA))
}
