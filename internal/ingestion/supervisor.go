package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/registry"
	"github.com/mr1hm/go-risk-alerts/internal/worker"
)

const (
	unitEscalation = "escalation"
	unitSnapshot   = "snapshot"
)

var (
	ErrAlreadyStarted  = errors.New("supervisor already started")
	ErrShutdownTimeout = errors.New("units still running after shutdown grace period")
	ErrNoManualSource  = errors.New("no manual source configured")
)

// UnitFault is a panic recovered from a supervised unit.
type UnitFault struct {
	Unit  string
	Value any
	Stack []byte
}

func (f *UnitFault) Error() string {
	return fmt.Sprintf("unit %s panicked: %v", f.Unit, f.Value)
}

type EventProcessor interface {
	ProcessEvent(ctx context.Context, ev *models.EventRecord) (*models.Alert, error)
}

type Escalator interface {
	Run(ctx context.Context) error
}

// ScheduledSource is a source with its polling interval.
type ScheduledSource struct {
	Source   Source
	Interval time.Duration
}

// SourcesFromConfig builds the enabled sources with the interval of their tier.
func SourcesFromConfig(cfg *config.Config) ([]ScheduledSource, error) {
	var out []ScheduledSource
	for _, sc := range cfg.Sources {
		if !sc.Enabled {
			continue
		}
		src, err := NewSource(sc)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}
		out = append(out, ScheduledSource{Source: src, Interval: cfg.PollInterval(sc.Tier)})
	}
	return out, nil
}

type Options struct {
	Config    *config.Config
	Sources   []ScheduledSource
	Processor EventProcessor
	Escalator Escalator          // optional
	Registry  *registry.Registry // optional, snapshots are skipped without it
	Store     SnapshotStore      // optional
	Clock     clock.Clock
}

// UnitStatus is the health of one supervised unit.
type UnitStatus struct {
	Name      string `json:"name"`
	Running   bool   `json:"running"`
	Degraded  bool   `json:"degraded"`
	Restarts  int    `json:"restarts"`
	LastError string `json:"last_error,omitempty"`
}

// Supervisor owns the pollers, the escalation loop, the snapshot loop and the
// worker pool that turns event records into alerts.
type Supervisor struct {
	cfg       *config.Config
	sources   []ScheduledSource
	processor EventProcessor
	escalator Escalator
	registry  *registry.Registry
	store     SnapshotStore
	clock     clock.Clock

	pool   *worker.WorkerPool[*models.EventRecord]
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	units map[string]*UnitStatus
}

func NewSupervisor(opts Options) *Supervisor {
	s := &Supervisor{
		cfg:       opts.Config,
		sources:   opts.Sources,
		processor: opts.Processor,
		escalator: opts.Escalator,
		registry:  opts.Registry,
		store:     opts.Store,
		clock:     opts.Clock,
		units:     make(map[string]*UnitStatus),
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	return s
}

// Start launches every unit and returns immediately.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	processor := func(ctx context.Context, ev *models.EventRecord) error {
		_, err := s.processor.ProcessEvent(ctx, ev)
		return err
	}
	s.pool = worker.NewWorkerPool("events", s.cfg.Worker.Count, s.cfg.Worker.BufferSize, processor)
	s.pool.Start(ctx)

	for _, src := range s.sources {
		s.spawn(ctx, "source:"+src.Source.Name(), s.pollLoop(src))
	}
	if s.escalator != nil {
		s.spawn(ctx, unitEscalation, s.escalator.Run)
	}
	if s.registry != nil && (s.store != nil || s.cfg.Snapshot.Path != "") {
		s.spawn(ctx, unitSnapshot, s.snapshotLoop)
	}

	slog.Info("supervisor started", "sources", len(s.sources), "workers", s.cfg.Worker.Count)
	return nil
}

// Stop cancels every unit and waits for them up to the shutdown grace period.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	ctx, done := context.WithTimeout(ctx, s.cfg.ShutdownGrace())
	defer done()

	stopped := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.pool.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		running := s.running()
		slog.Error("shutdown grace period expired", "running", running)
		return fmt.Errorf("%w: %v", ErrShutdownTimeout, running)
	}

	var errs []error
	if s.registry != nil && (s.store != nil || s.cfg.Snapshot.Path != "") {
		if err := s.TakeSnapshot(ctx); err != nil {
			errs = append(errs, fmt.Errorf("final snapshot: %w", err))
		}
	}
	for _, src := range s.sources {
		if c, ok := src.Source.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close source %s: %w", src.Source.Name(), err))
			}
		}
	}

	slog.Info("supervisor stopped")
	return errors.Join(errs...)
}

// Inject queues a record on the first manual source.
func (s *Supervisor) Inject(rec models.EventRecord) error {
	for _, src := range s.sources {
		if m, ok := src.Source.(*ManualSource); ok {
			return m.Enqueue(rec)
		}
	}
	return ErrNoManualSource
}

// Units reports the status of every unit, sorted by name.
func (s *Supervisor) Units() []UnitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]UnitStatus, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Supervisor) spawn(ctx context.Context, name string, fn func(context.Context) error) {
	s.mu.Lock()
	s.units[name] = &UnitStatus{Name: name, Running: true}
	s.mu.Unlock()
	unitDegraded.WithLabelValues(name).Set(0)

	s.wg.Add(1)
	go s.runUnit(ctx, name, fn)
}

// runUnit runs fn until ctx is done. A unit that returns an error or panics
// is marked degraded and restarted after the restart backoff.
func (s *Supervisor) runUnit(ctx context.Context, name string, fn func(context.Context) error) {
	defer s.wg.Done()
	defer s.setRunning(name, false)

	b := backoff.WithContext(backoff.NewConstantBackOff(s.cfg.RestartBackoff()), ctx)
	for {
		err := invoke(ctx, name, fn)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			slog.Info("unit finished", "unit", name)
			return
		}

		var fault *UnitFault
		if errors.As(err, &fault) {
			slog.Error("unit panicked", "unit", name, "panic", fault.Value, "stack", string(fault.Stack))
		} else {
			slog.Error("unit failed", "unit", name, "error", err)
		}
		s.markDegraded(name, err)

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		slog.Info("restarting unit", "unit", name, "backoff", wait)

		timer := s.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.mu.Lock()
		s.units[name].Restarts++
		s.mu.Unlock()
		unitRestarts.WithLabelValues(name).Inc()
		s.markHealthy(name)
	}
}

func invoke(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &UnitFault{Unit: name, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

func (s *Supervisor) pollLoop(src ScheduledSource) func(context.Context) error {
	name := src.Source.Name()
	unit := "source:" + name

	return func(ctx context.Context) error {
		slog.Info("starting poller", "source", name, "interval", src.Interval)

		var ready <-chan struct{}
		if n, ok := src.Source.(notifier); ok {
			ready = n.Ready()
		}

		for {
			wait := src.Interval
			if err := s.poll(ctx, src.Source); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				pollErrors.WithLabelValues(name).Inc()
				slog.Error("poll failed", "source", name, "error", err)
				s.markDegraded(unit, err)
				wait = s.cfg.RestartBackoff()
			} else {
				s.markHealthy(unit)
			}

			timer := s.clock.Timer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				slog.Info("poller shutting down", "source", name)
				return nil
			case <-timer.C:
			case <-ready:
				timer.Stop()
			}
		}
	}
}

func (s *Supervisor) poll(ctx context.Context, src Source) error {
	slog.Debug("polling", "source", src.Name())

	records, err := src.Fetch(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	for i := range records {
		rec := records[i]
		if rec.Source == "" {
			rec.Source = src.Name()
		}
		rec.ReceivedAt = now
		if err := s.pool.Submit(ctx, &rec); err != nil {
			return fmt.Errorf("submit record: %w", err)
		}
	}

	recordsFetched.WithLabelValues(src.Name()).Add(float64(len(records)))
	slog.Debug("poll complete", "source", src.Name(), "count", len(records))
	return nil
}

func (s *Supervisor) markDegraded(name string, err error) {
	s.mu.Lock()
	if u, ok := s.units[name]; ok {
		u.Degraded = true
		u.LastError = err.Error()
	}
	s.mu.Unlock()
	unitDegraded.WithLabelValues(name).Set(1)
}

func (s *Supervisor) markHealthy(name string) {
	s.mu.Lock()
	if u, ok := s.units[name]; ok {
		u.Degraded = false
	}
	s.mu.Unlock()
	unitDegraded.WithLabelValues(name).Set(0)
}

func (s *Supervisor) setRunning(name string, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.units[name]; ok {
		u.Running = running
	}
}

func (s *Supervisor) running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name, u := range s.units {
		if u.Running {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
