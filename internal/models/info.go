package models

// Info is returned by GET /api/info.
type Info struct {
	Version     string `json:"version"`
	Hostname    string `json:"hostname"`
	StationName string `json:"station_name"`
	StreamURL   string `json:"stream_url"`
	Online      bool   `json:"online"` // stream host reachable at the last check
	Mock        bool   `json:"mock,omitempty"`
}
