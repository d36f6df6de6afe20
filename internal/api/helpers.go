// Package api implements the HTTP REST and SSE API for the live stream daemon.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/worldwidefm/wwfm-live/internal/display"
	"github.com/worldwidefm/wwfm-live/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl     Controller
	events   EventBus
	schedule ScheduleSource
	info     func() models.Info
	card     display.Card
	backups  Backups
}

// Controller is the interface the handlers use to drive playback.
type Controller interface {
	State() models.PlaybackState
	Toggle()
	Pause()
}

// EventBus is the interface for subscribing to state change events.
type EventBus interface {
	Subscribe(id string) <-chan models.PlaybackState
	Unsubscribe(id string)
	SubscriberCount() int
}

// ScheduleSource reports the last show the schedule poller saw and when.
// A zero time means no lookup has succeeded yet.
type ScheduleSource interface {
	Current() (models.Show, time.Time)
}

// Backups takes and lists config backups.
type Backups interface {
	RunBackupNow() (string, error)
	ListBackups() ([]string, error)
}

// Deps are the router's collaborators. Everything but Controller and Events
// is optional. Auth wraps the control routes.
type Deps struct {
	Controller Controller
	Events     EventBus
	Schedule   ScheduleSource
	Info       func() models.Info
	Metrics    http.Handler
	Auth       func(http.Handler) http.Handler
	Card       display.Card
	Backups    Backups
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}
