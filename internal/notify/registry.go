package notify

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mr1hm/go-risk-alerts/internal/config"
)

// Factory creates a channel from its configuration.
type Factory func(cfg config.ChannelConfig) (Channel, error)

// Registry maps channel type identifiers to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the log channel already registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(LogChannelType, NewLogChannel)
	return r
}

func (r *Registry) Register(channelType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[channelType] = f
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typesLocked()
}

func (r *Registry) typesLocked() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build creates every enabled channel in order.
func (r *Registry) Build(cfgs []config.ChannelConfig) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []Entry
	for _, c := range cfgs {
		if !c.Enabled {
			slog.Info("channel disabled", "channel", c.Name, "type", c.Type)
			continue
		}
		f, ok := r.factories[c.Type]
		if !ok {
			return nil, fmt.Errorf("channel %s: unknown type %q (known: %s)", c.Name, c.Type, strings.Join(r.typesLocked(), ", "))
		}
		ch, err := f(c)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", c.Name, err)
		}
		entries = append(entries, Entry{Channel: ch, Timeout: c.Timeout()})
	}
	return entries, nil
}
