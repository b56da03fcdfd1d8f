package gateway

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// StatusPublisher mirrors a transfer's progress into a Redis hash and
// publishes on a channel of the same name, the pattern the example
// corpus's Redis client uses for state fan-out: any number of other
// processes can HGETALL the hash for the current snapshot or subscribe
// for change notifications, without coupling them to the gateway
// process itself.
type StatusPublisher struct {
	client *redis.Client
	keyFmt string
}

// NewStatusPublisher connects to a Redis server at addr. keyFmt is a
// fmt-style template taking the destination node address, e.g.
// "loraota:node:%d".
func NewStatusPublisher(addr, password string, db int, keyFmt string) (*StatusPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("gateway: connect to redis: %w", err)
	}
	if keyFmt == "" {
		keyFmt = "loraota:node:%d"
	}
	return &StatusPublisher{client: client, keyFmt: keyFmt}, nil
}

// Publish writes a transfer snapshot to the destination's hash and
// publishes a change notification on the same key.
func (s *StatusPublisher) Publish(ctx context.Context, destination uint16, inProgress bool, notAcked []uint16, lastAcked uint16) error {
	if s == nil {
		return nil
	}
	key := fmt.Sprintf(s.keyFmt, destination)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "in_progress", inProgress)
	pipe.HSet(ctx, key, "not_acked_count", len(notAcked))
	pipe.HSet(ctx, key, "last_acked", lastAcked)
	pipe.Publish(ctx, key, "last_acked:"+strconv.Itoa(int(lastAcked)))
	_, err := pipe.Exec(ctx)
	return err
}

// Close releases the underlying Redis connection.
func (s *StatusPublisher) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
