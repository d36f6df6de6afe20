package models_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name      string
		md        *models.Metadata
		scheduled string
		fallback  string
		want      string
	}{
		{"no metadata", nil, "", models.DefaultLabel, "Live Stream"},
		{"empty fallback", nil, "", "", "Live Stream"},
		{"scheduled only", nil, "Gilles Peterson", models.DefaultLabel, "Gilles Peterson"},
		{"content name", &models.Metadata{Content: &models.MetadataContent{Name: "Test Show", Artist: "Test Artist"}}, "Other", "", "Test Show"},
		{"title only", &models.Metadata{Metadata: &models.MetadataTitle{Title: "Track Title"}}, "Other", "", "Track Title"},
		{"blank name falls back to title", &models.Metadata{
			Content:  &models.MetadataContent{Name: "  "},
			Metadata: &models.MetadataTitle{Title: "Track Title"},
		}, "", "", "Track Title"},
		{"empty payload uses schedule", &models.Metadata{}, "Scheduled", "", "Scheduled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := models.Label(tt.md, tt.scheduled, tt.fallback); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMetadataDecodePartial(t *testing.T) {
	var md models.Metadata
	if err := json.Unmarshal([]byte(`{"content":{"name":"Test Show"}}`), &md); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if md.ShowName() != "Test Show" {
		t.Errorf("ShowName() = %q, want %q", md.ShowName(), "Test Show")
	}
	if md.ArtistName() != "" || md.Title() != "" {
		t.Errorf("expected empty artist/title, got %q/%q", md.ArtistName(), md.Title())
	}
	if md.Metadata != nil {
		t.Error("absent metadata object should stay nil")
	}
}

func TestPlaybackStateDeepCopy(t *testing.T) {
	st := models.PlaybackState{
		Status:       models.StatusPlaying,
		LastMetadata: &models.Metadata{Content: &models.MetadataContent{Name: "A"}},
	}
	cp := st.DeepCopy()
	cp.LastMetadata.Content.Name = "B"
	if st.LastMetadata.Content.Name != "A" {
		t.Errorf("DeepCopy shares content: got %q", st.LastMetadata.Content.Name)
	}
}

func TestPlaybackStateFallbackOmitted(t *testing.T) {
	data, err := json.Marshal(models.PlaybackState{Status: models.StatusPlaying, Label: "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "fallback_url") {
		t.Errorf("fallback_url should be omitted when empty: %s", data)
	}
	if !strings.Contains(string(data), `"last_metadata":null`) {
		t.Errorf("last_metadata should be null before any push: %s", data)
	}
}

func TestSettingsFillDefaults(t *testing.T) {
	s := models.Settings{StationName: "Custom", ScheduleIntervalSec: -5}
	s.FillDefaults()
	if s.StationName != "Custom" {
		t.Errorf("StationName = %q, want Custom", s.StationName)
	}
	if s.ScheduleIntervalSec != models.DefaultScheduleInterval {
		t.Errorf("ScheduleIntervalSec = %d, want %d", s.ScheduleIntervalSec, models.DefaultScheduleInterval)
	}
	if s.DefaultLabel != models.DefaultLabel {
		t.Errorf("DefaultLabel = %q, want %q", s.DefaultLabel, models.DefaultLabel)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []models.Status{models.StatusIdle, models.StatusLoading, models.StatusPlaying, models.StatusPaused, models.StatusError} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if models.Status("stopped").Valid() {
		t.Error(`"stopped" should not be valid`)
	}
}

func TestShowOnAir(t *testing.T) {
	if !(models.Show{Title: "A", Status: models.ShowStatusSchedule}).OnAir() {
		t.Error("scheduled show with title should be on air")
	}
	if (models.Show{Title: "A", Status: models.ShowStatusOffAir}).OnAir() {
		t.Error("offAir show should not be on air")
	}
}
