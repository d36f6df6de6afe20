package media

import (
	"context"
	"sync"
	"time"
)

// Mock is a scripted Media for tests and --mock mode.
//
// A manual Mock blocks every Play until the test settles it with Resolve.
// An auto Mock resolves immediately and fires the playing event.
type Mock struct {
	auto    bool
	pending chan chan error

	mu        sync.Mutex
	plays     int
	pauses    int
	onPlaying func()
	onError   func(error)
}

// NewMock returns a manual Mock.
func NewMock() *Mock {
	return &Mock{pending: make(chan chan error, 16)}
}

// NewAutoMock returns a Mock whose Play succeeds at once.
func NewAutoMock() *Mock {
	m := NewMock()
	m.auto = true
	return m
}

func (m *Mock) Play(ctx context.Context) error {
	m.mu.Lock()
	m.plays++
	m.mu.Unlock()

	if m.auto {
		m.EmitPlaying()
		return nil
	}

	res := make(chan error, 1)
	m.pending <- res
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mock) Pause() {
	m.mu.Lock()
	m.pauses++
	m.mu.Unlock()
}

func (m *Mock) OnPlaying(fn func()) {
	m.mu.Lock()
	m.onPlaying = fn
	m.mu.Unlock()
}

func (m *Mock) OnError(fn func(error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// Resolve settles the oldest pending Play with err, waiting up to timeout
// for one to arrive. It reports whether a Play was settled.
func (m *Mock) Resolve(err error, timeout time.Duration) bool {
	select {
	case res := <-m.pending:
		res <- err
		return true
	case <-time.After(timeout):
		return false
	}
}

// EmitPlaying fires the playing handler.
func (m *Mock) EmitPlaying() {
	m.mu.Lock()
	fn := m.onPlaying
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// EmitError fires the error handler.
func (m *Mock) EmitError(err error) {
	m.mu.Lock()
	fn := m.onError
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// PlayCount returns the number of Play calls.
func (m *Mock) PlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

// PauseCount returns the number of Pause calls.
func (m *Mock) PauseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

var _ Media = (*Mock)(nil)
var _ Media = (*HTTPStream)(nil)
