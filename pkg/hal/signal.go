package hal

import "context"

// Signal is a single-slot wake notifier.
// Raises before a Wait collapse into one wake.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates a Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Raise sets the signal. It never blocks.
func (s *Signal) Raise() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait suspends until the signal is raised and clears it.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending tells if a raise hasn't been consumed.
func (s *Signal) Pending() bool {
	return len(s.ch) > 0
}
