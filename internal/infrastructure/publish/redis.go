package publish

import (
	"context"
	"encoding/json"
	"strings"

	"arbradar/internal/application/port"
	"arbradar/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans each cycle's ranked lists out over Redis pub/sub. It
// writes no keys or streams: subscribers get the data, Redis keeps nothing.
type RedisPublisher struct {
	rdb     *redis.Client
	oppChan string
	sqzChan string
}

func NewRedis(rdb *redis.Client, prefix string) *RedisPublisher {
	if strings.TrimSpace(prefix) == "" {
		prefix = "arbradar"
	}
	return &RedisPublisher{
		rdb:     rdb,
		oppChan: prefix + ":opportunities",
		sqzChan: prefix + ":squeeze",
	}
}

// PublishSnapshot sends both lists as JSON arrays. Empty cycles still go
// out; every message replaces the previous list downstream.
func (p *RedisPublisher) PublishSnapshot(ctx context.Context, snap *model.RadarSnapshot) error {
	opps := snap.Opportunities
	if opps == nil {
		opps = []*model.ArbOpportunity{}
	}
	if err := p.publish(ctx, p.oppChan, opps); err != nil {
		return err
	}

	sigs := snap.Signals
	if sigs == nil {
		sigs = []*model.SqueezeSignal{}
	}
	return p.publish(ctx, p.sqzChan, sigs)
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, channel, b).Err()
}

func (p *RedisPublisher) Close() error { return p.rdb.Close() }

var _ port.Publisher = (*RedisPublisher)(nil)
