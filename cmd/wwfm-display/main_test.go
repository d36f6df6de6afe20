package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

func TestReadStates(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"status":"idle","label":"Live Stream"}`,
		``,
		`: keepalive`,
		``,
		`data: not json`,
		``,
		`data: {"status":"stopped","label":"Old Daemon"}`,
		``,
		`data: {"status":"playing","label":"Test Show"}`,
		``,
	}, "\n")

	var got []models.PlaybackState
	err := readStates(strings.NewReader(stream), func(st models.PlaybackState) {
		got = append(got, st)
	})
	if err == nil {
		t.Error("readStates should report the closed stream")
	}
	if len(got) != 2 {
		t.Fatalf("got %d states, want 2", len(got))
	}
	if got[0].Status != models.StatusIdle || got[1].Label != "Test Show" {
		t.Errorf("states = %+v", got)
	}
}

func TestFollow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"status\":\"error\",\"label\":\"x\",\"fallback_url\":\"https://example.com\"}\n\n")
	}))
	defer srv.Close()

	var got models.PlaybackState
	_ = follow(context.Background(), srv.Client(), srv.URL, func(st models.PlaybackState) { got = st })
	if got.Status != models.StatusError || got.FallbackURL != "https://example.com" {
		t.Errorf("got %+v", got)
	}
}

func TestFollowBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := follow(context.Background(), srv.Client(), srv.URL, func(models.PlaybackState) {
		t.Error("callback on error response")
	})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want status 503", err)
	}
}

func TestRGB565(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{255, 255, 255, 255})

	tests := []struct {
		x, y   int
		hi, lo byte
	}{
		{0, 0, 0xF8, 0x00},
		{1, 0, 0xFF, 0xFF},
		{5, 5, 0x00, 0x00}, // outside the image
	}
	for _, tt := range tests {
		hi, lo := rgb565(img, tt.x, tt.y)
		if hi != tt.hi || lo != tt.lo {
			t.Errorf("rgb565(%d,%d) = %02X%02X, want %02X%02X", tt.x, tt.y, hi, lo, tt.hi, tt.lo)
		}
	}
}
