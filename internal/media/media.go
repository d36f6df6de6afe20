// Package media implements the playback primitive driven by the player
// controller: something that can start a live stream, pause it, and report
// when audio actually begins flowing.
package media

import (
	"context"
	"errors"
)

// ErrRejected wraps every failure to start audio: network, HTTP status,
// unsupported content or output failure. Callers do not distinguish causes.
var ErrRejected = errors.New("playback rejected")

// ErrStreamEnded is reported through OnError when the server closes the stream.
var ErrStreamEnded = errors.New("stream ended")

// Media is the playback primitive contract.
//
// Play blocks until the stream has been accepted or has failed. Audio may
// start before or after Play returns; OnPlaying fires when it does.
// Pause must not block on handler callbacks, since callers may hold locks
// that those callbacks also take.
type Media interface {
	Play(ctx context.Context) error
	Pause()
	OnPlaying(fn func())
	OnError(fn func(error))
}
