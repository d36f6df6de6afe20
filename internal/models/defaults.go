package models

import "strings"

// DefaultLabel is shown when neither metadata nor the schedule name a show.
const DefaultLabel = "Live Stream"

// Default values for Settings.
const (
	DefaultStationName      = "Worldwide FM"
	DefaultStreamURL        = "https://worldwide-fm.radiocult.fm/stream"
	DefaultMetadataURL      = "wss://api.radiocult.fm/socket.io/"
	DefaultStationID        = "worldwide-fm"
	DefaultScheduleURL      = "https://api.radiocult.fm"
	DefaultFallbackURL      = "https://worldwide-fm.radiocult.fm"
	DefaultScheduleInterval = 60
)

// Settings is the daemon configuration stored in settings.json.
type Settings struct {
	StationName         string `json:"station_name"`
	StreamURL           string `json:"stream_url"`
	MetadataURL         string `json:"metadata_url"`
	StationID           string `json:"station_id"`
	ScheduleURL         string `json:"schedule_url"`
	ScheduleAPIKey      string `json:"schedule_api_key,omitempty"`
	FallbackURL         string `json:"fallback_url"`
	DefaultLabel        string `json:"default_label"`
	ScheduleIntervalSec int    `json:"schedule_interval_sec"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		StationName:         DefaultStationName,
		StreamURL:           DefaultStreamURL,
		MetadataURL:         DefaultMetadataURL,
		StationID:           DefaultStationID,
		ScheduleURL:         DefaultScheduleURL,
		FallbackURL:         DefaultFallbackURL,
		DefaultLabel:        DefaultLabel,
		ScheduleIntervalSec: DefaultScheduleInterval,
	}
}

// FillDefaults replaces zero-valued fields with their defaults.
func (s *Settings) FillDefaults() {
	def := DefaultSettings()
	if s.StationName == "" {
		s.StationName = def.StationName
	}
	if s.StreamURL == "" {
		s.StreamURL = def.StreamURL
	}
	if s.MetadataURL == "" {
		s.MetadataURL = def.MetadataURL
	}
	if s.StationID == "" {
		s.StationID = def.StationID
	}
	if s.ScheduleURL == "" {
		s.ScheduleURL = def.ScheduleURL
	}
	if s.FallbackURL == "" {
		s.FallbackURL = def.FallbackURL
	}
	if s.DefaultLabel == "" {
		s.DefaultLabel = def.DefaultLabel
	}
	if s.ScheduleIntervalSec <= 0 {
		s.ScheduleIntervalSec = def.ScheduleIntervalSec
	}
}

// Label picks the "now playing" display string.
// Order: content.name, metadata.title, scheduled show, fallback.
func Label(md *Metadata, scheduled, fallback string) string {
	if md != nil {
		if name := strings.TrimSpace(md.ShowName()); name != "" {
			return name
		}
		if title := strings.TrimSpace(md.Title()); title != "" {
			return title
		}
	}
	if s := strings.TrimSpace(scheduled); s != "" {
		return s
	}
	if fallback == "" {
		return DefaultLabel
	}
	return fallback
}
