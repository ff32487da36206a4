// Package model fuses sensor and pump updates into a short history and
// derives the pump target from it.
package model

import (
	"sync"
	"time"

	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// HistorySize is the number of entries kept.
const HistorySize = 8

// DefaultTarget is the pump state used before any entry exists.
// Cooling is the safer assumption without data.
const DefaultTarget = wire.StateOn

// Entry is a temperature sample paired with the pump state of the same cycle.
type Entry struct {
	Timestamp   time.Time
	Temperature wire.Celsius
	State       wire.ActuatorState
}

// Pending holds the halves of a pair not yet committed.
type Pending struct {
	Temperature *wire.Celsius
	State       *wire.ActuatorState
}

// Snapshot is a consistent view of the model.
type Snapshot struct {
	Setpoint wire.Celsius
	Target   wire.ActuatorState
	History  []Entry
	Pending  Pending
}

// Model is the control model shared by the sensor and pump drivers.
// It's safe for concurrent use; the lock is never held across anything
// which may block.
type Model struct {
	setpoint wire.Celsius
	clock    fx.TimeSource

	history history
	pending struct {
		temperature wire.Celsius
		state       wire.ActuatorState
		hasTemp     bool
		hasState    bool
	}
	lock sync.Mutex
}

// Option configures a Model.
type Option func(*Model)

// WithClock sets the source of entry timestamps.
func WithClock(clock fx.TimeSource) Option {
	return func(m *Model) {
		m.clock = clock
	}
}

// New creates a Model with the setpoint.
func New(setpoint wire.Celsius, opts ...Option) *Model {
	m := &Model{setpoint: setpoint, clock: fx.SystemTime}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Setpoint returns the configured setpoint.
func (m *Model) Setpoint() wire.Celsius {
	return m.setpoint
}

// PushTemperature stores a temperature sample, replacing an unpaired one.
func (m *Model) PushTemperature(value wire.Celsius) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.pending.temperature, m.pending.hasTemp = value, true
	m.tryCommit()
}

// PushActuatorState stores a pump state, replacing an unpaired one.
func (m *Model) PushActuatorState(state wire.ActuatorState) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.pending.state, m.pending.hasState = state, true
	m.tryCommit()
}

func (m *Model) tryCommit() {
	if !m.pending.hasTemp || !m.pending.hasState {
		return
	}
	m.history.push(Entry{
		Timestamp:   m.clock.Time(),
		Temperature: m.pending.temperature,
		State:       m.pending.state,
	})
	m.pending.hasTemp, m.pending.hasState = false, false
}

// Target computes the pump state: on when the latest temperature is
// strictly above the setpoint, off otherwise. There is no hysteresis.
func (m *Model) Target() wire.ActuatorState {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.target()
}

func (m *Model) target() wire.ActuatorState {
	last, ok := m.history.last()
	if !ok {
		return DefaultTarget
	}
	if last.Temperature > m.setpoint {
		return wire.StateOn
	}
	return wire.StateOff
}

// History returns the entries from oldest to newest.
func (m *Model) History() []Entry {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.history.entries()
}

// Pending returns the unpaired values.
func (m *Model) Pending() Pending {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.pendingCopy()
}

func (m *Model) pendingCopy() (p Pending) {
	if m.pending.hasTemp {
		v := m.pending.temperature
		p.Temperature = &v
	}
	if m.pending.hasState {
		v := m.pending.state
		p.State = &v
	}
	return
}

// Snapshot returns the whole state at once.
func (m *Model) Snapshot() Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()
	return Snapshot{
		Setpoint: m.setpoint,
		Target:   m.target(),
		History:  m.history.entries(),
		Pending:  m.pendingCopy(),
	}
}

type history struct {
	ring [HistorySize]Entry
	next int
	size int
}

func (h *history) push(e Entry) {
	h.ring[h.next] = e
	h.next = (h.next + 1) % HistorySize
	if h.size < HistorySize {
		h.size++
	}
}

func (h *history) last() (Entry, bool) {
	if h.size == 0 {
		return Entry{}, false
	}
	return h.ring[(h.next+HistorySize-1)%HistorySize], true
}

func (h *history) entries() []Entry {
	out := make([]Entry, h.size)
	start := (h.next + HistorySize - h.size) % HistorySize
	for i := range out {
		out[i] = h.ring[(start+i)%HistorySize]
	}
	return out
}
