package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockManualResolve(t *testing.T) {
	m := NewMock()
	done := make(chan error, 1)
	go func() { done <- m.Play(context.Background()) }()

	want := errors.New("NotAllowedError")
	if !m.Resolve(want, time.Second) {
		t.Fatal("Resolve found no pending Play")
	}
	if err := <-done; !errors.Is(err, want) {
		t.Errorf("Play() = %v, want %v", err, want)
	}
	if m.PlayCount() != 1 {
		t.Errorf("PlayCount() = %d, want 1", m.PlayCount())
	}
}

func TestMockResolveTimesOut(t *testing.T) {
	m := NewMock()
	if m.Resolve(nil, 10*time.Millisecond) {
		t.Error("Resolve reported success with no pending Play")
	}
}

func TestAutoMockFiresPlaying(t *testing.T) {
	m := NewAutoMock()
	fired := false
	m.OnPlaying(func() { fired = true })
	if err := m.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !fired {
		t.Error("auto mock did not fire playing")
	}
	m.Pause()
	if m.PauseCount() != 1 {
		t.Errorf("PauseCount() = %d, want 1", m.PauseCount())
	}
}
