// Package player implements the live-stream playback controller: the single
// owner of the playback status, driven by user toggles, media events and
// metadata pushes.
//
// Status only changes on a toggle, an explicit pause, the media's playing
// event, or a media failure. Metadata pushes only change the label.
package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/worldwidefm/wwfm-live/internal/metrics"
	"github.com/worldwidefm/wwfm-live/internal/models"
)

// ErrTornDown is returned by Start after Teardown.
var ErrTornDown = errors.New("player torn down")

// Media is the playback primitive the controller drives.
// See media.Media for the contract.
type Media interface {
	Play(ctx context.Context) error
	Pause()
	OnPlaying(fn func())
	OnError(fn func(error))
}

// Channel is the metadata push source.
type Channel interface {
	Connect(ctx context.Context) error
	Subscribe(fn func(models.Metadata))
	Disconnect() error
}

// Publisher receives a snapshot after every change.
type Publisher interface {
	Publish(state models.PlaybackState)
}

// Options configures a Controller.
type Options struct {
	FallbackURL  string
	DefaultLabel string
	Publisher    Publisher
	Metrics      *metrics.Recorder
}

// Controller mediates between toggle intent, the media primitive and the
// metadata channel. It exclusively owns both collaborators.
type Controller struct {
	mu      sync.Mutex
	media   Media
	channel Channel
	pub     Publisher
	rec     *metrics.Recorder

	status       models.Status
	lastMetadata *models.Metadata
	scheduled    string
	fallbackURL  string
	defaultLabel string
	updatedAt    time.Time

	inFlight     bool // a Play call has not returned yet
	pausePending bool // paused while inFlight; Pause is issued once Play settles
	failed       bool // the stream failed while inFlight; the attempt ends in error

	ctx    context.Context
	cancel context.CancelFunc
	torn   bool

	disconnectOnce sync.Once
}

// New creates an idle controller and attaches it to media and channel.
// channel may be nil.
func New(media Media, channel Channel, opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		media:        media,
		channel:      channel,
		pub:          opts.Publisher,
		rec:          opts.Metrics,
		status:       models.StatusIdle,
		fallbackURL:  opts.FallbackURL,
		defaultLabel: opts.DefaultLabel,
		updatedAt:    time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}
	if c.defaultLabel == "" {
		c.defaultLabel = models.DefaultLabel
	}
	media.OnPlaying(c.handlePlaying)
	media.OnError(c.handleMediaError)
	if channel != nil {
		channel.Subscribe(c.HandleMetadata)
	}
	return c
}

// Start connects the metadata channel. A connect error is returned for
// logging; playback works without metadata.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.torn {
		c.mu.Unlock()
		return ErrTornDown
	}
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return nil
	}
	return ch.Connect(ctx)
}

// State returns the current snapshot.
func (c *Controller) State() models.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Toggle starts playback from idle, paused or error, and pauses from
// playing. It is ignored while a play attempt is loading. It never blocks
// on the media and never fails; failures surface as StatusError.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn {
		return
	}

	switch c.status {
	case models.StatusLoading:
		slog.Debug("player: toggle ignored while loading")
		return
	case models.StatusPlaying:
		c.pauseLocked()
	default:
		if c.inFlight {
			// Paused before the outstanding Play returned: resume it
			// instead of issuing a second one.
			c.pausePending = false
			c.setStatusLocked(models.StatusLoading)
		} else {
			c.beginAttemptLocked()
		}
	}
	c.publishLocked()
}

// Pause pauses playback. It is a no-op unless playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn || c.status != models.StatusPlaying {
		return
	}
	c.pauseLocked()
	c.publishLocked()
}

// HandleMetadata applies a metadata push. It updates the label and never
// touches the media or the status.
func (c *Controller) HandleMetadata(md models.Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn {
		return
	}
	cp := md.Clone()
	c.lastMetadata = &cp
	c.updatedAt = time.Now()
	c.rec.Metadata()
	slog.Debug("player: metadata", "show", cp.ShowName(), "artist", cp.ArtistName(), "title", cp.Title())
	c.publishLocked()
}

// SetScheduledShow sets the schedule-derived label used until metadata arrives.
func (c *Controller) SetScheduledShow(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn || c.scheduled == title {
		return
	}
	c.scheduled = title
	c.updatedAt = time.Now()
	c.publishLocked()
}

// SetFallbackURL replaces the external stream link shown on error.
func (c *Controller) SetFallbackURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn || c.fallbackURL == url {
		return
	}
	c.fallbackURL = url
	if c.status == models.StatusError {
		c.publishLocked()
	}
}

// SetDefaultLabel replaces the label used when nothing better is known.
func (c *Controller) SetDefaultLabel(label string) {
	if label == "" {
		label = models.DefaultLabel
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn || c.defaultLabel == label {
		return
	}
	c.defaultLabel = label
	c.publishLocked()
}

// Teardown stops playback, disconnects the metadata channel and releases
// the media. The controller stays idle afterwards. Safe to call repeatedly.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.torn {
		c.mu.Unlock()
		return
	}
	c.torn = true
	c.cancel()
	if c.status == models.StatusPlaying && !c.inFlight {
		c.media.Pause()
	}
	c.media = nil
	c.pausePending = false
	c.setStatusLocked(models.StatusIdle)
	c.publishLocked()
	c.mu.Unlock()

	c.disconnectOnce.Do(func() {
		if c.channel == nil {
			return
		}
		if err := c.channel.Disconnect(); err != nil {
			slog.Warn("player: metadata disconnect failed", "err", err)
		}
	})
	slog.Info("player: torn down")
}

// beginAttemptLocked issues the one and only Play for this attempt.
func (c *Controller) beginAttemptLocked() {
	c.inFlight = true
	c.pausePending = false
	c.failed = false
	c.setStatusLocked(models.StatusLoading)
	c.rec.PlayAttempt()
	go c.runAttempt(c.ctx, c.media)
}

func (c *Controller) runAttempt(ctx context.Context, m Media) {
	err := m.Play(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	failed := c.failed
	c.failed = false

	if c.torn {
		if err == nil {
			// Resolved just as we were torn down; stop the audio.
			m.Pause()
		}
		return
	}

	if c.pausePending {
		c.pausePending = false
		if err == nil {
			m.Pause()
		}
		return
	}

	if err != nil {
		c.rec.PlayRejected()
		slog.Warn("player: play attempt rejected", "err", err)
		c.setStatusLocked(models.StatusError)
		c.publishLocked()
		return
	}
	if failed {
		if c.status == models.StatusLoading {
			c.rec.StreamError()
			slog.Warn("player: stream failed before play settled")
			c.setStatusLocked(models.StatusError)
			c.publishLocked()
		}
		return
	}
	if c.status == models.StatusLoading {
		c.setStatusLocked(models.StatusPlaying)
		c.publishLocked()
	}
}

// pauseLocked pauses now, or defers the media Pause until the in-flight
// Play settles so the two never overlap.
func (c *Controller) pauseLocked() {
	if c.inFlight {
		c.pausePending = true
	} else {
		c.media.Pause()
	}
	c.setStatusLocked(models.StatusPaused)
}

// handlePlaying is the media's playing event.
func (c *Controller) handlePlaying() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn || c.status != models.StatusLoading {
		return
	}
	c.setStatusLocked(models.StatusPlaying)
	c.publishLocked()
}

// handleMediaError is a failure reported by the media. While Play is still
// outstanding it is recorded so the attempt cannot settle into playing.
func (c *Controller) handleMediaError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn {
		return
	}
	if c.inFlight && c.status == models.StatusLoading {
		c.failed = true
		slog.Debug("player: media error before play settled", "err", err)
		return
	}
	if c.status != models.StatusPlaying {
		slog.Debug("player: media error ignored", "status", c.status, "err", err)
		return
	}
	if c.inFlight {
		c.failed = true
	}
	c.rec.StreamError()
	slog.Warn("player: stream failed", "err", err)
	c.setStatusLocked(models.StatusError)
	c.publishLocked()
}

func (c *Controller) setStatusLocked(s models.Status) {
	if c.status == s {
		return
	}
	slog.Debug("player: status", "from", c.status, "to", s)
	c.status = s
	c.updatedAt = time.Now()
	c.rec.Transition(s)
}

func (c *Controller) snapshotLocked() models.PlaybackState {
	st := models.PlaybackState{
		Status:        c.status,
		Label:         models.Label(c.lastMetadata, c.scheduled, c.defaultLabel),
		ScheduledShow: c.scheduled,
		UpdatedAt:     c.updatedAt,
	}
	if c.lastMetadata != nil {
		md := c.lastMetadata.Clone()
		st.LastMetadata = &md
		st.Artist = md.ArtistName()
	}
	if c.status == models.StatusError {
		st.FallbackURL = c.fallbackURL
	}
	return st
}

// publishLocked runs under mu so subscribers see snapshots in order.
// Publisher implementations must not block.
func (c *Controller) publishLocked() {
	if c.pub != nil {
		c.pub.Publish(c.snapshotLocked())
	}
}
