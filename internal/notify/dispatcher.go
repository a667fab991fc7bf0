package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

const defaultTimeout = 10 * time.Second

// Entry is a channel together with its send timeout.
type Entry struct {
	Channel Channel
	Timeout time.Duration
}

// ChannelResult is the outcome of one channel for one dispatch.
type ChannelResult struct {
	Channel  string         `json:"channel"`
	Type     string         `json:"type"`
	Report   DeliveryReport `json:"report"`
	Err      error          `json:"-"`
	Duration time.Duration  `json:"duration"`
}

func (r ChannelResult) Success() bool {
	return r.Err == nil
}

// Dispatcher fans an alert out to every channel concurrently.
type Dispatcher struct {
	entries []Entry
}

func NewDispatcher(entries ...Entry) *Dispatcher {
	for i := range entries {
		if entries[i].Timeout <= 0 {
			entries[i].Timeout = defaultTimeout
		}
	}
	return &Dispatcher{entries: entries}
}

func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.entries))
	for i, e := range d.entries {
		names[i] = e.Channel.Name()
	}
	return names
}

// Dispatch sends alert to recipients on every channel and returns one result
// per channel in configuration order. It returns once every channel has
// finished or hit its timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) []ChannelResult {
	results := make([]ChannelResult, len(d.entries))

	var wg sync.WaitGroup
	for i, e := range d.entries {
		wg.Add(1)
		go func(i int, e Entry) {
			defer wg.Done()
			results[i] = d.send(ctx, e, alert, recipients)
		}(i, e)
	}
	wg.Wait()

	var sent, failed []string
	for _, r := range results {
		if r.Success() {
			sent = append(sent, r.Channel)
		} else {
			failed = append(failed, r.Channel)
		}
	}

	if len(sent) > 0 {
		slog.Info("alert dispatched", "alert_id", alert.ID, "severity", alert.Severity.String(), "channels", sent)
	}
	if len(failed) > 0 {
		slog.Warn("alert dispatch failed on some channels", "alert_id", alert.ID, "channels", failed)
	}
	dispatchesTotal.Inc()

	return results
}

type outcome struct {
	report DeliveryReport
	err    error
}

func (d *Dispatcher) send(ctx context.Context, e Entry, alert models.Alert, recipients []models.Stakeholder) ChannelResult {
	name := e.Channel.Name()
	result := ChannelResult{Channel: name, Type: e.Channel.Type()}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	rcpts := make([]models.Stakeholder, len(recipients))
	for i, s := range recipients {
		rcpts[i] = s.Clone()
	}

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		report, err := e.Channel.Send(ctx, alert.Clone(), rcpts)
		done <- outcome{report: report, err: err}
	}()

	select {
	case o := <-done:
		result.Report = o.report
		if o.err != nil {
			result.Err = &DeliveryError{Channel: name, Err: o.err}
		}
	case <-ctx.Done():
		result.Err = &DeliveryError{Channel: name, Err: ctx.Err()}
	}
	result.Duration = time.Since(start)

	recordSend(name, result.Success(), result.Duration)
	if result.Err != nil {
		slog.Error("channel delivery failed", "channel", name, "alert_id", alert.ID, "error", result.Err)
	}

	return result
}
