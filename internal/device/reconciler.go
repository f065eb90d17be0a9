package device

import (
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Reconciler.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reconciler holds the in-memory device state table and applies updates
// with last-write-wins semantics.
//
// All public methods are thread-safe.
type Reconciler struct {
	mu     sync.RWMutex
	states map[string]*State
	logger Logger
}

// NewReconciler creates a reconciler seeded with the given devices,
// all initially off. Devices not in the seed list are auto-registered
// on their first update.
func NewReconciler(devices []string) *Reconciler {
	r := &Reconciler{
		states: make(map[string]*State, len(devices)),
		logger: noopLogger{},
	}
	now := time.Now()
	for _, name := range devices {
		if name == "" {
			continue
		}
		r.states[name] = &State{
			Name:      name,
			IsOn:      false,
			Source:    SourceLocal,
			UpdatedAt: now,
		}
	}
	return r
}

// SetLogger sets the logger for the reconciler.
func (r *Reconciler) SetLogger(logger Logger) {
	r.logger = logger
}

// Apply records a state update for a device.
//
// The update always wins: an echo confirming an already-applied command
// overwrites the entry with identical values, and a late command reverses
// an earlier one. Unknown devices are registered on first sight.
//
// Returns a Change describing what happened, for broadcasting.
func (r *Reconciler) Apply(device string, isOn bool, source Source) Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	change := Change{
		Device: device,
		IsOn:   isOn,
		Source: source,
	}

	existing, ok := r.states[device]
	if ok {
		change.Known = true
		change.Previous = existing.IsOn
		existing.IsOn = isOn
		existing.Source = source
		existing.UpdatedAt = time.Now()
	} else {
		r.states[device] = &State{
			Name:      device,
			IsOn:      isOn,
			Source:    source,
			UpdatedAt: time.Now(),
		}
		r.logger.Info("device auto-registered", "device", device, "source", source)
	}

	r.logger.Debug("device state applied",
		"device", device,
		"is_on", isOn,
		"source", source,
	)

	return change
}

// Get returns the current state of a device.
func (r *Reconciler) Get(device string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[device]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Snapshot returns a copy of all device states, sorted by name.
func (r *Reconciler) Snapshot() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]State, 0, len(r.states))
	for _, s := range r.states {
		states = append(states, *s)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Name < states[j].Name
	})
	return states
}
