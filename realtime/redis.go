package realtime

import (
	"context"
	"fmt"
	"sync"

	"papum-backend/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "papum:house:"

func redisChannel(houseID uuid.UUID) string {
	return redisChannelPrefix + houseID.String()
}

// RedisNotifier uses Redis pub/sub, one channel per house, so every API
// replica sees every event.
type RedisNotifier struct {
	client *redis.Client

	once sync.Once
	done chan struct{}
}

// NewRedisNotifier does not take ownership of client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client, done: make(chan struct{})}
}

func (n *RedisNotifier) Publish(ctx context.Context, e Event) error {
	payload, err := encode(e)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, redisChannel(e.HouseID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, houseID uuid.UUID) (<-chan Event, error) {
	select {
	case <-n.done:
		return nil, ErrClosed
	default:
	}

	pubsub := n.client.Subscribe(ctx, redisChannel(houseID))
	// Wait for the subscription to be confirmed so no event published
	// right after Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	log := logger.Component("realtime").With("backend", "redis", "house_id", houseID)

	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-n.done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				e, err := decode(msg.Payload)
				if err != nil {
					log.Warn("Dropping malformed event", "error", err)
					continue
				}
				select {
				case out <- e:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close ends every open subscription. The Redis client stays open.
func (n *RedisNotifier) Close() error {
	n.once.Do(func() { close(n.done) })
	return nil
}
