// Command wwfm-display drives the front-panel TFT of a wwfm-live box.
// It follows the daemon's state stream and renders the now-playing card
// on every change.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/worldwidefm/wwfm-live/internal/display"
	"github.com/worldwidefm/wwfm-live/internal/models"
)

// Renderer shows a rendered card somewhere.
type Renderer interface {
	Show(st models.PlaybackState) error
}

func main() {
	var (
		addr      = flag.String("addr", "localhost:8080", "wwfm-live API address")
		station   = flag.String("station", models.DefaultStationName, "station name for the header")
		spiDev    = flag.String("spi", "/dev/spidev1.0", "SPI device of the TFT")
		dcPin     = flag.String("dc-pin", "GPIO39", "TFT data/command GPIO")
		backlight = flag.String("backlight-pin", "GPIO12", "TFT backlight GPIO")
		logOnly   = flag.Bool("log-only", false, "log state changes instead of driving the TFT")
		logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	level := slog.LevelInfo
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	card := display.Card{Width: displayWidth, Height: displayHeight, Station: *station}
	var out Renderer = logRenderer{}
	if !*logOnly {
		tft, err := NewTFT(TFTConfig{SPIDevice: *spiDev, DCPin: *dcPin, BacklightPin: *backlight})
		if err != nil {
			slog.Warn("TFT init failed, falling back to log-only mode", "err", err)
		} else {
			defer tft.Off()
			out = tftRenderer{tft: tft, card: card}
		}
	}

	url := fmt.Sprintf("http://%s/api/subscribe", *addr)
	slog.Info("wwfm-display starting", "url", url)
	run(ctx, url, out)
	slog.Info("wwfm-display stopped")
}

// run follows the state stream, reconnecting no faster than every 2s
// after the first retry.
func run(ctx context.Context, url string, out Renderer) {
	client := &http.Client{} // no timeout: the stream is long-lived
	limiter := rate.NewLimiter(rate.Every(2*time.Second), 2)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		err := follow(ctx, client, url, func(st models.PlaybackState) {
			if err := out.Show(st); err != nil {
				slog.Warn("render failed", "err", err)
			}
		})
		if ctx.Err() != nil {
			return
		}
		slog.Warn("state stream ended, reconnecting", "err", err)
	}
}

// follow reads one SSE connection until it ends.
func follow(ctx context.Context, client *http.Client, url string, fn func(models.PlaybackState)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return readStates(resp.Body, fn)
}

// readStates decodes "data:" lines of an SSE stream. Comments and other
// fields are skipped.
func readStates(r io.Reader, fn func(models.PlaybackState)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var st models.PlaybackState
		if err := json.Unmarshal([]byte(payload), &st); err != nil {
			slog.Debug("skipping bad event", "err", err)
			continue
		}
		if !st.Status.Valid() {
			slog.Debug("skipping event with unknown status", "status", st.Status)
			continue
		}
		fn(st)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("stream closed")
}

type tftRenderer struct {
	tft  *TFT
	card display.Card
}

func (r tftRenderer) Show(st models.PlaybackState) error {
	if err := r.tft.Show(r.card.Render(st)); err != nil {
		return fmt.Errorf("render to TFT: %w", err)
	}
	slog.Debug("TFT display updated", "status", st.Status, "label", st.Label)
	return nil
}

// logRenderer is used when no panel is present.
type logRenderer struct{}

func (logRenderer) Show(st models.PlaybackState) error {
	slog.Info("display status",
		"status", st.Status,
		"label", st.Label,
		"artist", st.Artist,
		"fallback", st.FallbackURL,
	)
	return nil
}
