package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

func TestClientLive(t *testing.T) {
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"status":"schedule","content":{"title":" Gilles Peterson ","startDateUtc":"2026-10-14T10:00:00Z","endDateUtc":"2026-10-14T12:00:00Z"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "worldwide-fm", "secret")
	show, err := c.Live(context.Background())
	if err != nil {
		t.Fatalf("Live() error = %v", err)
	}
	if gotPath != "/api/station/worldwide-fm/schedule/live" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("x-api-key = %q, want secret", gotKey)
	}
	if show.Title != "Gilles Peterson" || !show.OnAir() {
		t.Errorf("show = %+v", show)
	}
	if show.Start == nil || show.Start.Hour() != 10 {
		t.Errorf("start = %v", show.Start)
	}
}

func TestClientLiveMetadataTitleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"status":"defaultPlaylist","content":{},"metadata":{"title":"Rotation"}}}`))
	}))
	defer srv.Close()

	show, err := NewClient(srv.URL, "s", "").Live(context.Background())
	if err != nil {
		t.Fatalf("Live() error = %v", err)
	}
	if show.Title != "Rotation" || show.OnAir() {
		t.Errorf("show = %+v, want Rotation not on air", show)
	}
}

func TestClientLiveErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("{")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			if _, err := NewClient(srv.URL, "s", "").Live(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// scriptLookup returns queued results in order, repeating the last one.
type scriptLookup struct {
	mu      sync.Mutex
	results []lookupResult
	calls   int
}

type lookupResult struct {
	show models.Show
	err  error
}

func (s *scriptLookup) Live(context.Context) (models.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i].show, s.results[i].err
}

func TestPollerReportsChangesOnly(t *testing.T) {
	lookup := &scriptLookup{results: []lookupResult{
		{show: models.Show{Title: "Morning", Status: models.ShowStatusSchedule}},
		{show: models.Show{Title: "Morning", Status: models.ShowStatusSchedule}},
		{err: errors.New("boom")},
		{show: models.Show{Title: "Evening", Status: models.ShowStatusSchedule}},
		{show: models.Show{Status: models.ShowStatusOffAir}},
	}}

	titles := make(chan string, 10)
	p := NewPoller(lookup, 5*time.Millisecond, func(title string) { titles <- title })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	want := []string{"Morning", "Evening", ""}
	for _, w := range want {
		select {
		case got := <-titles:
			if got != w {
				t.Fatalf("onShow(%q), want %q", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}

	cur, checked := p.Current()
	if cur.Status != models.ShowStatusOffAir || checked.IsZero() {
		t.Errorf("Current() = %+v at %v", cur, checked)
	}
}

func TestPollerFailureLeavesLabelAlone(t *testing.T) {
	lookup := &scriptLookup{results: []lookupResult{{err: errors.New("offline")}}}
	called := make(chan string, 1)
	p := NewPoller(lookup, time.Hour, func(title string) { called <- title })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	select {
	case title := <-called:
		t.Errorf("onShow(%q) called despite failed lookup", title)
	default:
	}
}
