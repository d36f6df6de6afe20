package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	readBufferSize = 32 * 1024
	headerTimeout  = 30 * time.Second
)

// UserAgent is sent with every stream request.
var UserAgent = "wwfm-live/0.1"

// HTTPStream plays an HTTP (Icecast/Shoutcast style) live audio stream.
// Pausing drops the connection; the next Play rejoins the live edge.
type HTTPStream struct {
	url    string
	client *http.Client
	output Output

	mu        sync.Mutex
	cancel    context.CancelFunc // non-nil while a connection is open or opening
	gen       uint64             // bumped on every Play and Pause
	onPlaying func()
	onError   func(error)
}

// NewHTTPStream creates a stream reader for url writing into out.
// A nil out discards audio.
func NewHTTPStream(url string, out Output) *HTTPStream {
	if out == nil {
		out = DiscardOutput{}
	}
	return &HTTPStream{
		url:    url,
		output: out,
		client: &http.Client{
			// No overall timeout: the body is read for as long as the stream plays.
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: headerTimeout,
			},
		},
	}
}

func (s *HTTPStream) OnPlaying(fn func()) {
	s.mu.Lock()
	s.onPlaying = fn
	s.mu.Unlock()
}

func (s *HTTPStream) OnError(fn func(error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// Play opens the stream. It returns once the server has answered with an
// audio response; the body is then pumped into the output in the background.
// Cancelling ctx before the response arrives aborts the attempt.
func (s *HTTPStream) Play(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, cancel)
	resp, err := s.open(streamCtx)
	stop()
	if err != nil {
		s.release(gen)
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	s.mu.Lock()
	if s.gen != gen {
		// Paused while connecting.
		s.mu.Unlock()
		resp.Body.Close()
		return fmt.Errorf("%w: paused before start", ErrRejected)
	}
	s.mu.Unlock()

	slog.Info("media: stream connected", "url", s.url, "content_type", resp.Header.Get("Content-Type"))
	go s.pump(streamCtx, gen, resp.Body)
	return nil
}

func (s *HTTPStream) open(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "audio/*, application/ogg;q=0.9, */*;q=0.1")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !isAudioContent(ct) {
		resp.Body.Close()
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}
	return resp, nil
}

// Pause drops the connection. It does not wait for the pump to exit.
func (s *HTTPStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *HTTPStream) pump(ctx context.Context, gen uint64, body io.ReadCloser) {
	defer body.Close()

	w, err := s.output.Open(ctx)
	if err != nil {
		s.fail(gen, fmt.Errorf("open output: %w", err))
		return
	}
	defer w.Close()

	buf := make([]byte, readBufferSize)
	started := false
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				s.fail(gen, fmt.Errorf("write output: %w", werr))
				return
			}
			if !started {
				started = true
				s.emitPlaying(gen)
			}
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(rerr, io.EOF) {
				rerr = ErrStreamEnded
			}
			s.fail(gen, rerr)
			return
		}
	}
}

func (s *HTTPStream) emitPlaying(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	fn := s.onPlaying
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *HTTPStream) fail(gen uint64, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	fn := s.onError
	s.mu.Unlock()

	slog.Warn("media: stream failed", "url", s.url, "err", err)
	if fn != nil {
		fn(err)
	}
}

// release clears the connection state left by a failed Play.
func (s *HTTPStream) release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// isAudioContent accepts audio/*, Ogg and untyped binary responses.
// Servers that omit the header entirely are given the benefit of the doubt.
func isAudioContent(ct string) bool {
	if strings.TrimSpace(ct) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mt, "audio/"):
		return true
	case mt == "application/ogg", mt == "application/octet-stream":
		return true
	}
	return false
}
