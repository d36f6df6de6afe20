package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const sigtermTimeout = 3 * time.Second

// Output is where stream bytes go once audio is flowing.
type Output interface {
	Open(ctx context.Context) (io.WriteCloser, error)
}

// DiscardOutput drops all audio. Used headless and in tests.
type DiscardOutput struct{}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (DiscardOutput) Open(context.Context) (io.WriteCloser, error) {
	return nopWriteCloser{io.Discard}, nil
}

// playerArgs are the stdin-reading invocations of the supported local players.
var playerArgs = map[string][]string{
	"ffplay": {"-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "-"},
	"mpv":    {"--no-video", "--really-quiet", "--cache=no", "-"},
	"vlc":    {"--intf", "dummy", "--no-video", "--play-and-exit", "-"},
	"cvlc":   {"--no-video", "--play-and-exit", "-"},
}

// CommandOutput pipes audio into a local player subprocess.
// A new process is started for every Open and stopped when the writer closes.
type CommandOutput struct {
	name string
	args []string
}

// NewCommandOutput creates an output for the named player binary.
// Known players (ffplay, mpv, vlc, cvlc) get their stdin arguments filled in.
func NewCommandOutput(name string, args ...string) *CommandOutput {
	if len(args) == 0 {
		args = playerArgs[filepath.Base(name)]
	}
	return &CommandOutput{name: name, args: args}
}

// Open starts the player in its own process group.
func (o *CommandOutput) Open(ctx context.Context) (io.WriteCloser, error) {
	cmd := exec.Command(findBinary(o.name), o.args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("output %s: stdin pipe: %w", o.name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("output %s: start: %w", o.name, err)
	}
	slog.Info("media: output process running", "cmd", cmd.Path, "pid", cmd.Process.Pid)

	pw := &procWriter{cmd: cmd, stdin: stdin, exited: make(chan struct{})}
	go func() {
		pw.waitErr = cmd.Wait()
		close(pw.exited)
	}()
	return pw, nil
}

type procWriter struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	exited  chan struct{}
	waitErr error
	once    sync.Once
}

func (p *procWriter) Write(b []byte) (int, error) {
	select {
	case <-p.exited:
		return 0, fmt.Errorf("output process exited: %v", p.waitErr)
	default:
	}
	return p.stdin.Write(b)
}

// Close ends stdin, then stops the process group with SIGTERM and,
// after sigtermTimeout, SIGKILL.
func (p *procWriter) Close() error {
	p.once.Do(func() {
		_ = p.stdin.Close()
		pid := p.cmd.Process.Pid
		_ = unix.Kill(-pid, unix.SIGTERM)
		select {
		case <-p.exited:
		case <-time.After(sigtermTimeout):
			slog.Warn("media: SIGTERM timed out, sending SIGKILL", "pid", pid)
			_ = unix.Kill(-pid, unix.SIGKILL)
			<-p.exited
		}
	})
	return nil
}

// findBinary searches for a binary by name in order:
//  1. exec.LookPath (PATH)
//  2. /usr/bin/<name>
//  3. /usr/local/bin/<name>
func findBinary(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	for _, dir := range []string{"/usr/bin", "/usr/local/bin"} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	// Return the name and let exec.Command fail naturally with a clear error
	return name
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
