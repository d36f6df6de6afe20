package models

import "time"

// MetadataEvent is the Socket.IO event name carrying now-playing updates.
const MetadataEvent = "player-metadata"

// MetadataContent is the show/track part of a metadata push.
type MetadataContent struct {
	Name   string `json:"name,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// MetadataTitle is the stream-title part of a metadata push.
type MetadataTitle struct {
	Title string `json:"title,omitempty"`
}

// Metadata is one "now playing" push from the metadata channel.
// Either object may be absent.
type Metadata struct {
	Content  *MetadataContent `json:"content,omitempty"`
	Metadata *MetadataTitle   `json:"metadata,omitempty"`
}

// Clone returns a copy that shares no pointers with m.
func (m Metadata) Clone() Metadata {
	next := Metadata{}
	if m.Content != nil {
		c := *m.Content
		next.Content = &c
	}
	if m.Metadata != nil {
		t := *m.Metadata
		next.Metadata = &t
	}
	return next
}

// ShowName returns content.name, or "" if absent.
func (m Metadata) ShowName() string {
	if m.Content == nil {
		return ""
	}
	return m.Content.Name
}

// ArtistName returns content.artist, or "" if absent.
func (m Metadata) ArtistName() string {
	if m.Content == nil {
		return ""
	}
	return m.Content.Artist
}

// Title returns metadata.title, or "" if absent.
func (m Metadata) Title() string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata.Title
}

// Schedule statuses reported by the live schedule endpoint.
const (
	ShowStatusSchedule        = "schedule"
	ShowStatusDefaultPlaylist = "defaultPlaylist"
	ShowStatusOffAir          = "offAir"
)

// Show is the currently scheduled show as reported by the schedule lookup.
type Show struct {
	Title  string     `json:"title"`
	Status string     `json:"status"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
}

// OnAir reports whether a scheduled show is currently broadcasting.
func (s Show) OnAir() bool {
	return s.Status == ShowStatusSchedule && s.Title != ""
}
