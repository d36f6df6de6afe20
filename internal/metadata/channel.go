// Package metadata delivers "now playing" pushes from the station's
// metadata service to the player controller.
package metadata

import (
	"context"
	"errors"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

// ErrClosed is returned by Connect after Disconnect.
var ErrClosed = errors.New("metadata channel closed")

// Channel is a push-only metadata source. Payloads are delivered to every
// subscriber in arrival order, at most once, with no replay.
type Channel interface {
	Connect(ctx context.Context) error
	Subscribe(fn func(models.Metadata))
	Disconnect() error
}
