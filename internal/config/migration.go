package config

import (
	"log/slog"
	"strings"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

// minScheduleInterval keeps the schedule poller from hammering the API.
const minScheduleInterval = 10

// migrateSettings fills in defaults for fields that may be missing in older
// config files and normalizes the rest.
func migrateSettings(s *models.Settings) {
	s.StationName = strings.TrimSpace(s.StationName)
	s.StreamURL = strings.TrimSpace(s.StreamURL)
	s.MetadataURL = strings.TrimSpace(s.MetadataURL)
	s.StationID = strings.TrimSpace(s.StationID)
	s.ScheduleURL = strings.TrimRight(strings.TrimSpace(s.ScheduleURL), "/")
	s.FallbackURL = strings.TrimSpace(s.FallbackURL)
	s.DefaultLabel = strings.TrimSpace(s.DefaultLabel)

	if s.ScheduleIntervalSec > 0 && s.ScheduleIntervalSec < minScheduleInterval {
		slog.Warn("config: schedule interval too short, clamping",
			"interval_sec", s.ScheduleIntervalSec, "min", minScheduleInterval)
		s.ScheduleIntervalSec = minScheduleInterval
	}

	s.FillDefaults()
}
