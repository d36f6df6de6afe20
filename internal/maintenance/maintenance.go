// Package maintenance runs the daemon's background housekeeping: checking
// that the stream host is reachable and taking daily config backups.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	backupPrefix    = "wwfm-live-config-"
	backupSuffix    = ".tar.gz"
	backupRetention = 30 * 24 * time.Hour
	onlineInterval  = 5 * time.Minute
	dialTimeout     = 3 * time.Second
)

// dialFunc is a variable so tests can inject a mock dialer.
var dialFunc = func(network, address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, address, timeout)
}

// Service manages background maintenance goroutines.
type Service struct {
	configDir  string
	backupDir  string
	streamAddr string     // host:port of the stream server
	onOnline   func(bool) // called when reachability changes
}

// New creates a maintenance Service. Backups go to ~/backups unless
// backupDir is set.
func New(configDir, backupDir, streamURL string, onOnline func(bool)) *Service {
	if backupDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			backupDir = filepath.Join(home, "backups")
		}
	}
	return &Service{
		configDir:  configDir,
		backupDir:  backupDir,
		streamAddr: hostPort(streamURL),
		onOnline:   onOnline,
	}
}

// hostPort extracts host:port from a stream URL, defaulting the port from
// the scheme.
func hostPort(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// Start launches all background maintenance goroutines.
// Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if s.streamAddr != "" {
		go s.runCheckOnline(ctx)
	}
	if s.backupDir != "" {
		go s.runBackup(ctx)
	}

	<-ctx.Done()
}

// RunBackupNow performs a backup immediately and returns the backup file path.
func (s *Service) RunBackupNow() (string, error) {
	return runBackup(s.configDir, s.backupDir)
}

// ListBackups returns the backup files in the backup directory.
func (s *Service) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), backupSuffix) {
			files = append(files, filepath.Join(s.backupDir, e.Name()))
		}
	}
	return files, nil
}

// checkOnline dials the stream host once.
func (s *Service) checkOnline() bool {
	conn, err := dialFunc("tcp", s.streamAddr, dialTimeout)
	if conn != nil {
		conn.Close()
	}
	return err == nil
}

// runCheckOnline checks stream host reachability every 5 minutes.
func (s *Service) runCheckOnline(ctx context.Context) {
	lastStatus := false
	first := true

	check := func() {
		online := s.checkOnline()
		if first || online != lastStatus {
			first = false
			lastStatus = online
			if s.onOnline != nil {
				s.onOnline(online)
			}
			slog.Info("maintenance: stream host reachability", "addr", s.streamAddr, "online", online)
		}
	}

	check() // immediate first check

	ticker := time.NewTicker(onlineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// runBackup performs daily backups at 2am.
func (s *Service) runBackup(ctx context.Context) {
	for {
		now := time.Now()
		next2am := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, now.Location())
		if !next2am.After(now) {
			next2am = next2am.Add(24 * time.Hour)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(next2am.Sub(now)):
			path, err := runBackup(s.configDir, s.backupDir)
			if err != nil {
				slog.Error("maintenance: backup failed", "err", err)
			} else {
				slog.Info("maintenance: backup created", "file", path)
			}
		}
	}
}

// runBackup archives configDir into backupDir and prunes old archives.
func runBackup(configDir, backupDir string) (string, error) {
	if configDir == "" || backupDir == "" {
		return "", fmt.Errorf("backup: config and backup directories are required")
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	destFile := filepath.Join(backupDir, backupPrefix+date+backupSuffix)

	cmd := exec.Command("tar", "-czf", destFile, "-C", filepath.Dir(configDir), filepath.Base(configDir))
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("tar: %w: %s", err, out)
	}

	pruneOldBackups(backupDir, backupRetention)
	return destFile, nil
}

// pruneOldBackups deletes backup files older than maxAge from backupDir.
func pruneOldBackups(backupDir string, maxAge time.Duration) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(backupDir, e.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("maintenance: failed to prune old backup", "file", path, "err", err)
			} else {
				slog.Info("maintenance: pruned old backup", "file", path)
			}
		}
	}
}
