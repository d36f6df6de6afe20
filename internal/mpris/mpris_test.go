package mpris

import (
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

type fakeController struct {
	mu      sync.Mutex
	status  models.Status
	toggles int
	pauses  int
}

func (f *fakeController) State() models.PlaybackState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.PlaybackState{Status: f.status}
}

func (f *fakeController) Toggle() {
	f.mu.Lock()
	f.toggles++
	f.mu.Unlock()
}

func (f *fakeController) Pause() {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
}

func TestPlaybackStatus(t *testing.T) {
	tests := []struct {
		in   models.Status
		want string
	}{
		{models.StatusPlaying, "Playing"},
		{models.StatusPaused, "Paused"},
		{models.StatusLoading, "Stopped"},
		{models.StatusIdle, "Stopped"},
		{models.StatusError, "Stopped"},
	}
	for _, tt := range tests {
		if got := PlaybackStatus(tt.in); got != tt.want {
			t.Errorf("PlaybackStatus(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMetadata(t *testing.T) {
	md := Metadata(models.PlaybackState{Label: "Test Show", Artist: "Test Artist", ScheduledShow: "Breakfast"})

	if got := md["xesam:title"].Value(); got != "Test Show" {
		t.Errorf("xesam:title = %v, want Test Show", got)
	}
	artists, ok := md["xesam:artist"].Value().([]string)
	if !ok || len(artists) != 1 || artists[0] != "Test Artist" {
		t.Errorf("xesam:artist = %v", md["xesam:artist"].Value())
	}
	if got := md["xesam:album"].Value(); got != "Breakfast" {
		t.Errorf("xesam:album = %v, want Breakfast", got)
	}
	if got := md["mpris:trackid"].Value(); got != trackID {
		t.Errorf("mpris:trackid = %v, want %v", got, trackID)
	}
}

func TestMetadataOmitsEmptyFields(t *testing.T) {
	md := Metadata(models.PlaybackState{Label: models.DefaultLabel})
	if _, ok := md["xesam:artist"]; ok {
		t.Error("xesam:artist present without an artist")
	}
	if _, ok := md["xesam:album"]; ok {
		t.Error("xesam:album present without a scheduled show")
	}
}

func TestPlayerMethods(t *testing.T) {
	tests := []struct {
		name        string
		status      models.Status
		call        func(p *playerMethods) *dbus.Error
		wantToggles int
		wantPauses  int
	}{
		{"playpause", models.StatusPlaying, (*playerMethods).PlayPause, 1, 0},
		{"play from paused", models.StatusPaused, (*playerMethods).Play, 1, 0},
		{"play while playing", models.StatusPlaying, (*playerMethods).Play, 0, 0},
		{"play while loading", models.StatusLoading, (*playerMethods).Play, 0, 0},
		{"pause", models.StatusPlaying, (*playerMethods).Pause, 0, 1},
		{"stop", models.StatusPlaying, (*playerMethods).Stop, 0, 1},
		{"next", models.StatusPlaying, (*playerMethods).Next, 0, 0},
		{"seek", models.StatusPlaying, func(p *playerMethods) *dbus.Error { return p.SeekBy(1000) }, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{status: tt.status}
			if err := tt.call(&playerMethods{ctrl: ctrl}); err != nil {
				t.Fatalf("call returned %v", err)
			}
			if ctrl.toggles != tt.wantToggles || ctrl.pauses != tt.wantPauses {
				t.Errorf("toggles=%d pauses=%d, want %d %d", ctrl.toggles, ctrl.pauses, tt.wantToggles, tt.wantPauses)
			}
		})
	}
}

func TestPlayerIntrospectionNames(t *testing.T) {
	names := map[string]bool{}
	for _, m := range playerIntrospection(&playerMethods{}) {
		names[m.Name] = true
	}
	for _, want := range []string{"Play", "Pause", "PlayPause", "Stop", "Next", "Previous", "Seek", "SetPosition", "OpenUri"} {
		if !names[want] {
			t.Errorf("introspection missing %s", want)
		}
	}
	if names["SeekBy"] {
		t.Error("introspection exposes Go name SeekBy")
	}
}

func TestPublishKeepsLatest(t *testing.T) {
	b := &Bridge{
		updates: make(chan models.PlaybackState, 1),
		done:    make(chan struct{}),
	}
	b.Publish(models.PlaybackState{Status: models.StatusLoading})
	b.Publish(models.PlaybackState{Status: models.StatusPlaying})

	select {
	case st := <-b.updates:
		if st.Status != models.StatusPlaying {
			t.Errorf("pending status = %s, want playing", st.Status)
		}
	default:
		t.Fatal("no pending update")
	}
}

func TestPublishAfterCloseDoesNotBlock(t *testing.T) {
	b := &Bridge{
		updates: make(chan models.PlaybackState, 1),
		done:    make(chan struct{}),
	}
	close(b.done)
	b.Publish(models.PlaybackState{Status: models.StatusPlaying})
	if len(b.updates) != 0 {
		t.Error("update queued after close")
	}
}
