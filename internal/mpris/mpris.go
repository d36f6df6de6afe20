// Package mpris exposes the live player on the D-Bus session bus as an
// MPRIS2 media player, so desktop media keys and applets can toggle it.
package mpris

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

const (
	busNamePrefix = "org.mpris.MediaPlayer2."
	objectPath    = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	ifaceRoot     = "org.mpris.MediaPlayer2"
	ifacePlayer   = "org.mpris.MediaPlayer2.Player"

	// trackID names the single, endless live "track".
	trackID = dbus.ObjectPath("/org/worldwidefm/live")
)

// Controller is the part of the player the bridge drives.
type Controller interface {
	State() models.PlaybackState
	Toggle()
	Pause()
}

// Bridge owns the bus name and keeps the MPRIS properties in step with
// playback snapshots.
type Bridge struct {
	conn  *dbus.Conn
	props *prop.Properties
	name  string

	updates chan models.PlaybackState
	done    chan struct{}
	once    sync.Once
}

// Start connects to the session bus, claims org.mpris.MediaPlayer2.<instance>
// and exports the root and player interfaces.
func Start(ctrl Controller, instance, identity string) (*Bridge, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("mpris: session bus: %w", err)
	}
	b, err := export(conn, ctrl, instance, identity)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

func export(conn *dbus.Conn, ctrl Controller, instance, identity string) (*Bridge, error) {
	name := busNamePrefix + instance
	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("mpris: request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("mpris: bus name %s already taken", name)
	}

	root := &rootMethods{}
	player := &playerMethods{ctrl: ctrl}
	if err := conn.Export(root, objectPath, ifaceRoot); err != nil {
		return nil, fmt.Errorf("mpris: export root: %w", err)
	}
	if err := conn.ExportWithMap(player, playerMethodNames, objectPath, ifacePlayer); err != nil {
		return nil, fmt.Errorf("mpris: export player: %w", err)
	}

	st := ctrl.State()
	props, err := prop.Export(conn, objectPath, prop.Map{
		ifaceRoot: {
			"CanQuit":             {Value: false, Emit: prop.EmitFalse},
			"CanRaise":            {Value: false, Emit: prop.EmitFalse},
			"HasTrackList":        {Value: false, Emit: prop.EmitFalse},
			"Identity":            {Value: identity, Emit: prop.EmitFalse},
			"SupportedUriSchemes": {Value: []string{}, Emit: prop.EmitFalse},
			"SupportedMimeTypes":  {Value: []string{}, Emit: prop.EmitFalse},
		},
		ifacePlayer: {
			"PlaybackStatus": {Value: PlaybackStatus(st.Status), Emit: prop.EmitTrue},
			"Metadata":       {Value: Metadata(st), Emit: prop.EmitTrue},
			"Rate":           {Value: 1.0, Emit: prop.EmitFalse},
			"MinimumRate":    {Value: 1.0, Emit: prop.EmitFalse},
			"MaximumRate":    {Value: 1.0, Emit: prop.EmitFalse},
			"Volume":         {Value: 1.0, Emit: prop.EmitFalse},
			"Position":       {Value: int64(0), Emit: prop.EmitFalse},
			"CanGoNext":      {Value: false, Emit: prop.EmitFalse},
			"CanGoPrevious":  {Value: false, Emit: prop.EmitFalse},
			"CanPlay":        {Value: true, Emit: prop.EmitFalse},
			"CanPause":       {Value: true, Emit: prop.EmitFalse},
			"CanSeek":        {Value: false, Emit: prop.EmitFalse},
			"CanControl":     {Value: true, Emit: prop.EmitFalse},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mpris: export properties: %w", err)
	}

	node := &introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{Name: ifaceRoot, Methods: introspect.Methods(root), Properties: props.Introspection(ifaceRoot)},
			{Name: ifacePlayer, Methods: playerIntrospection(player), Properties: props.Introspection(ifacePlayer)},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("mpris: export introspection: %w", err)
	}

	b := &Bridge{
		conn:    conn,
		props:   props,
		name:    name,
		updates: make(chan models.PlaybackState, 1),
		done:    make(chan struct{}),
	}
	go b.loop()
	slog.Info("mpris: registered", "name", name)
	return b, nil
}

// Publish queues st for the bus. Only the latest pending snapshot is kept,
// so Publish never blocks.
func (b *Bridge) Publish(st models.PlaybackState) {
	select {
	case <-b.done:
		return
	default:
	}
	for {
		select {
		case b.updates <- st:
			return
		default:
		}
		select {
		case <-b.updates:
		default:
		}
	}
}

func (b *Bridge) loop() {
	for {
		select {
		case <-b.done:
			return
		case st := <-b.updates:
			b.props.SetMust(ifacePlayer, "PlaybackStatus", PlaybackStatus(st.Status))
			b.props.SetMust(ifacePlayer, "Metadata", Metadata(st))
		}
	}
}

// Close releases the bus name and the connection. Safe to call repeatedly.
func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		if _, rerr := b.conn.ReleaseName(b.name); rerr != nil {
			slog.Debug("mpris: release name", "err", rerr)
		}
		err = b.conn.Close()
		slog.Info("mpris: unregistered", "name", b.name)
	})
	return err
}

// PlaybackStatus maps a controller status onto MPRIS's three states.
// A pending play attempt reports Stopped until audio is flowing.
func PlaybackStatus(s models.Status) string {
	switch s {
	case models.StatusPlaying:
		return "Playing"
	case models.StatusPaused:
		return "Paused"
	}
	return "Stopped"
}

// Metadata builds the xesam metadata map for st.
func Metadata(st models.PlaybackState) map[string]dbus.Variant {
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackID),
		"xesam:title":   dbus.MakeVariant(st.Label),
	}
	if st.Artist != "" {
		md["xesam:artist"] = dbus.MakeVariant([]string{st.Artist})
	}
	if st.ScheduledShow != "" {
		md["xesam:album"] = dbus.MakeVariant(st.ScheduledShow)
	}
	return md
}

// rootMethods implements org.mpris.MediaPlayer2. The daemon has no window
// and is not quit over the bus.
type rootMethods struct{}

func (rootMethods) Raise() *dbus.Error { return nil }
func (rootMethods) Quit() *dbus.Error { return nil }

// playerMethods implements org.mpris.MediaPlayer2.Player.
type playerMethods struct {
	ctrl Controller
}

func (p *playerMethods) PlayPause() *dbus.Error {
	p.ctrl.Toggle()
	return nil
}

// Play toggles only when not already playing or loading.
func (p *playerMethods) Play() *dbus.Error {
	switch p.ctrl.State().Status {
	case models.StatusPlaying, models.StatusLoading:
	default:
		p.ctrl.Toggle()
	}
	return nil
}

func (p *playerMethods) Pause() *dbus.Error {
	p.ctrl.Pause()
	return nil
}

// Stop is a pause: a live stream has nothing to rewind.
func (p *playerMethods) Stop() *dbus.Error {
	p.ctrl.Pause()
	return nil
}

func (p *playerMethods) Next() *dbus.Error { return nil }
func (p *playerMethods) Previous() *dbus.Error { return nil }
func (p *playerMethods) SeekBy(offset int64) *dbus.Error { return nil }
func (p *playerMethods) SetPosition(dbus.ObjectPath, int64) *dbus.Error { return nil }
func (p *playerMethods) OpenUri(string) *dbus.Error { return nil }

// playerMethodNames maps Go method names to their D-Bus names where they
// differ. Seek is not named Seek in Go so it is not mistaken for io.Seeker.
var playerMethodNames = map[string]string{"SeekBy": "Seek"}

// playerIntrospection lists the player methods under their D-Bus names.
func playerIntrospection(p *playerMethods) []introspect.Method {
	methods := introspect.Methods(p)
	for i, m := range methods {
		if name, ok := playerMethodNames[m.Name]; ok {
			methods[i].Name = name
		}
	}
	return methods
}
