package config_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/worldwidefm/wwfm-live/internal/config"
	"github.com/worldwidefm/wwfm-live/internal/models"
)

// --- JSONStore tests ---

func newTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "wwfm-config-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func writeSettings(t *testing.T, dir string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestJSONStore_LoadMissingFile_ReturnsDefault(t *testing.T) {
	dir := newTempDir(t)
	store := config.NewJSONStore(dir)

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if *s != models.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", *s)
	}
	if store.Exists() {
		t.Error("Exists() = true for missing file")
	}
}

func TestJSONStore_SaveLoadRoundTrip(t *testing.T) {
	dir := newTempDir(t)
	store := config.NewJSONStore(dir)

	s := models.DefaultSettings()
	s.FallbackURL = "https://example.com/listen"
	s.ScheduleIntervalSec = 120

	if err := store.Save(&s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.FallbackURL != "https://example.com/listen" {
		t.Errorf("FallbackURL = %q", loaded.FallbackURL)
	}
	if loaded.ScheduleIntervalSec != 120 {
		t.Errorf("ScheduleIntervalSec = %d, want 120", loaded.ScheduleIntervalSec)
	}
}

func TestJSONStore_CorruptJSON_ReturnsDefault(t *testing.T) {
	dir := newTempDir(t)
	store := config.NewJSONStore(dir)

	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte("{invalid json!!!"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for corrupt file", err)
	}
	if *s != models.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", *s)
	}
}

func TestJSONStore_MigratesPartialFile(t *testing.T) {
	dir := newTempDir(t)
	writeSettings(t, dir, map[string]interface{}{
		"stream_url":            "  https://stream.example.com/live  ",
		"schedule_url":          "https://api.example.com/",
		"schedule_interval_sec": 2,
	})

	s, err := config.NewJSONStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.StreamURL != "https://stream.example.com/live" {
		t.Errorf("StreamURL = %q, want trimmed", s.StreamURL)
	}
	if s.ScheduleURL != "https://api.example.com" {
		t.Errorf("ScheduleURL = %q, want trailing slash removed", s.ScheduleURL)
	}
	if s.ScheduleIntervalSec != 10 {
		t.Errorf("ScheduleIntervalSec = %d, want clamp to 10", s.ScheduleIntervalSec)
	}
	if s.FallbackURL != models.DefaultFallbackURL {
		t.Errorf("FallbackURL = %q, want default", s.FallbackURL)
	}
	if s.DefaultLabel != models.DefaultLabel {
		t.Errorf("DefaultLabel = %q, want default", s.DefaultLabel)
	}
}

func TestJSONStore_FlushWithoutSave_NoError(t *testing.T) {
	store := config.NewJSONStore(newTempDir(t))
	if err := store.Flush(); err != nil {
		t.Errorf("Flush() without Save error = %v", err)
	}
}

func TestJSONStore_SaveTwice_WritesLast(t *testing.T) {
	dir := newTempDir(t)
	store := config.NewJSONStore(dir)

	a := models.DefaultSettings()
	a.DefaultLabel = "first"
	b := models.DefaultSettings()
	b.DefaultLabel = "second"
	_ = store.Save(&a)
	_ = store.Save(&b)

	time.Sleep(700 * time.Millisecond) // let the debounce timer fire

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultLabel != "second" {
		t.Errorf("DefaultLabel = %q, want second", loaded.DefaultLabel)
	}
}

func TestJSONStore_Path(t *testing.T) {
	dir := newTempDir(t)
	store := config.NewJSONStore(dir)
	want := filepath.Join(dir, "settings.json")
	if store.Path() != want {
		t.Errorf("Path() = %q, want %q", store.Path(), want)
	}
}

func TestJSONStore_WatchReloads(t *testing.T) {
	dir := newTempDir(t)
	store := config.NewJSONStore(dir)

	changes := make(chan models.Settings, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- store.Watch(ctx, func(s models.Settings) { changes <- s })
	}()
	time.Sleep(100 * time.Millisecond) // let the watcher register

	s := models.DefaultSettings()
	s.FallbackURL = "https://example.com/new"
	_ = store.Save(&s)
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-changes:
			if got.FallbackURL == "https://example.com/new" {
				cancel()
				if err := <-watchErr; err != nil {
					t.Errorf("Watch() error = %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

// --- MemStore tests ---

func TestMemStore_LoadBeforeSave_ReturnsDefault(t *testing.T) {
	s, err := config.NewMemStore().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *s != models.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", *s)
	}
}

func TestMemStore_MutationIsolation(t *testing.T) {
	store := config.NewMemStore()
	s := models.DefaultSettings()
	_ = store.Save(&s)
	s.StationName = "mutated"

	loaded, _ := store.Load()
	if loaded.StationName == "mutated" {
		t.Error("MemStore shares memory with caller")
	}
	loaded.StationName = "mutated again"
	again, _ := store.Load()
	if again.StationName != models.DefaultStationName {
		t.Errorf("StationName = %q, want default", again.StationName)
	}
	if store.Path() != ":memory:" {
		t.Errorf("Path() = %q", store.Path())
	}
	if err := store.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
}
