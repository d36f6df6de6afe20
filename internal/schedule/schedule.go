// Package schedule looks up the currently scheduled show, used to label
// the live stream before any metadata has arrived.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 256 * 1024
)

// Client calls the station's live schedule endpoint.
type Client struct {
	baseURL   string
	stationID string
	apiKey    string
	http      *http.Client
}

// NewClient creates a schedule client for GET {baseURL}/api/station/{stationID}/schedule/live.
func NewClient(baseURL, stationID, apiKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		stationID: stationID,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: requestTimeout},
	}
}

// liveResponse is the subset of the live schedule response we read.
type liveResponse struct {
	Result struct {
		Status  string `json:"status"`
		Content struct {
			Title     string     `json:"title"`
			StartDate *time.Time `json:"startDateUtc"`
			EndDate   *time.Time `json:"endDateUtc"`
		} `json:"content"`
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	} `json:"result"`
}

// Live returns the show currently on air.
func (c *Client) Live(ctx context.Context) (models.Show, error) {
	endpoint := fmt.Sprintf("%s/api/station/%s/schedule/live", c.baseURL, url.PathEscape(c.stationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Show{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Show{}, fmt.Errorf("schedule lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return models.Show{}, fmt.Errorf("schedule lookup: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Show{}, fmt.Errorf("schedule lookup: HTTP %d", resp.StatusCode)
	}

	var lr liveResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return models.Show{}, fmt.Errorf("schedule lookup: decode: %w", err)
	}

	show := models.Show{
		Title:  strings.TrimSpace(lr.Result.Content.Title),
		Status: lr.Result.Status,
		Start:  lr.Result.Content.StartDate,
		End:    lr.Result.Content.EndDate,
	}
	if show.Title == "" {
		show.Title = strings.TrimSpace(lr.Result.Metadata.Title)
	}
	return show, nil
}

// Lookup is satisfied by *Client.
type Lookup interface {
	Live(ctx context.Context) (models.Show, error)
}

// Poller refreshes the scheduled show on an interval.
type Poller struct {
	lookup   Lookup
	interval time.Duration
	onShow   func(title string)

	mu      sync.RWMutex
	current models.Show
	checked time.Time
}

// NewPoller creates a poller calling onShow whenever the on-air title changes.
// Off-air results report an empty title.
func NewPoller(lookup Lookup, interval time.Duration, onShow func(string)) *Poller {
	if interval <= 0 {
		interval = time.Duration(models.DefaultScheduleInterval) * time.Second
	}
	return &Poller{lookup: lookup, interval: interval, onShow: onShow}
}

// Current returns the last successfully fetched show and when it was fetched.
func (p *Poller) Current() (models.Show, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.checked
}

// Run checks immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	first := true

	check := func() {
		show, err := p.lookup.Live(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("schedule: live lookup failed", "err", err)
			}
			return
		}
		title := ""
		if show.OnAir() {
			title = show.Title
		}

		p.mu.Lock()
		prev := p.current
		p.current = show
		p.checked = time.Now()
		p.mu.Unlock()

		prevTitle := ""
		if prev.OnAir() {
			prevTitle = prev.Title
		}
		if first || title != prevTitle {
			first = false
			slog.Info("schedule: on air", "title", title, "status", show.Status)
			if p.onShow != nil {
				p.onShow(title)
			}
		}
	}

	check() // immediate first check

	ticker := time.NewTicker(p.interval)
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
