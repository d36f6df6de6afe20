// Package models defines the data structures shared by the wwfm-live daemon.
// JSON field names are the wire format of the REST and SSE API.
package models

import "time"

// Status is the playback status of the live stream controller.
type Status string

// Playback statuses.
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusError   Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusLoading, StatusPlaying, StatusPaused, StatusError:
		return true
	}
	return false
}

// PlaybackState is the snapshot published to API clients.
type PlaybackState struct {
	Status        Status    `json:"status"`
	Label         string    `json:"label"`
	Artist        string    `json:"artist,omitempty"`
	LastMetadata  *Metadata `json:"last_metadata"`
	ScheduledShow string    `json:"scheduled_show,omitempty"`
	FallbackURL   string    `json:"fallback_url,omitempty"` // only set while Status == error
	UpdatedAt     time.Time `json:"updated_at"`
}

// DeepCopy returns a copy that shares no pointers with s.
func (s PlaybackState) DeepCopy() PlaybackState {
	next := s
	if s.LastMetadata != nil {
		md := s.LastMetadata.Clone()
		next.LastMetadata = &md
	}
	return next
}
