// Package zeroconf registers the daemon's HTTP API as an mDNS/DNS-SD service
// so controllers on the LAN can find it without configuration.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"

	"github.com/worldwidefm/wwfm-live/internal/identity"
)

// Service manages mDNS service registration.
type Service struct {
	name string // instance name, e.g. "Worldwide FM on studio"
	port int
	txt  []string
}

// New creates a new zeroconf Service that will advertise on the given port.
func New(name string, port int, station, version string) *Service {
	return &Service{
		name: name,
		port: port,
		txt:  TXTRecords(station, version),
	}
}

// TXTRecords returns the TXT records advertised alongside the service.
func TXTRecords(station, version string) []string {
	return []string{
		"version=" + version,
		"station=" + station,
		"path=/api/player",
	}
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	if s.port <= 0 {
		return fmt.Errorf("zeroconf register: invalid port %d", s.port)
	}

	server, err := zeroconf.Register(
		s.name,
		identity.ServiceType,
		"local.",
		s.port,
		s.txt,
		nil, // all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"port", s.port,
		"txt", s.txt,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
