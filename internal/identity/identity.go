// Package identity provides host and build identity for the daemon.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DefaultVersion is the fallback version string when version.json is not found.
const DefaultVersion = "0.1.0"

// ServiceType is the DNS-SD service type advertised on the LAN.
const ServiceType = "_http._tcp"

// GetHostname returns the system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "wwfm-live"
	}
	return h
}

// GetVersionFromDir reads the version from version.json in dir.
// Falls back to DefaultVersion if the file is missing or unreadable.
func GetVersionFromDir(dir string) string {
	if dir == "" {
		return DefaultVersion
	}

	data, err := os.ReadFile(filepath.Join(dir, "version.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return DefaultVersion
	}

	if v, ok := meta["version"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return DefaultVersion
}

// InstanceName builds the mDNS instance name, e.g. "Worldwide FM on studio-pi".
func InstanceName(station, hostname string) string {
	station = strings.TrimSpace(station)
	hostname = strings.TrimSuffix(strings.TrimSpace(hostname), ".local")
	switch {
	case station == "" && hostname == "":
		return "wwfm-live"
	case station == "":
		return hostname
	case hostname == "":
		return station
	}
	return station + " on " + hostname
}
