package radar

import (
	"context"

	"arbradar/internal/application/port"
	"arbradar/internal/domain/model"
)

type noopPublisher struct{}

// NewNoopPublisher stands in when Redis is disabled.
func NewNoopPublisher() port.Publisher { return &noopPublisher{} }

func (n *noopPublisher) PublishSnapshot(ctx context.Context, snap *model.RadarSnapshot) error {
	return nil
}

func (n *noopPublisher) Close() error { return nil }
