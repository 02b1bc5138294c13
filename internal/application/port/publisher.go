package port

import (
	"context"

	"arbradar/internal/domain/model"
)

// Publisher fans out finished radar snapshots to downstream consumers,
// e.g. a Redis pub/sub channel. Publishing is fire-and-forget: a failed
// publish must not stall the refresh loop.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *model.RadarSnapshot) error
	Close() error
}
