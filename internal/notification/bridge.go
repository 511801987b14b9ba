package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"prodline_backend/internal/notification/sse"
	"prodline_backend/platform/logger"
)

// bridgeMessage is the wire form of a transition on the Redis channel.
// Origin identifies the publishing instance so it can skip its own
// messages when they come back around.
type bridgeMessage struct {
	Origin string    `json:"origin"`
	Event  sse.Event `json:"event"`
}

// broadcaster receives events re-broadcast from other instances.
type broadcaster interface {
	Broadcast(event sse.Event)
}

// Bridge fans order transitions out across API instances over Redis
// pub/sub. Publishing is fire-and-forget: there is no ack and a publish
// failure only logs.
type Bridge struct {
	client   *redis.Client
	channel  string
	instance string
	sink     broadcaster
	log      *logger.Logger
	cancel   context.CancelFunc
}

// NewBridge connects to Redis and starts the subscriber loop.
func NewBridge(redisURL, channel string, sink broadcaster, log *logger.Logger) (*Bridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		client:   redis.NewClient(opts),
		channel:  channel,
		instance: uuid.NewString(),
		sink:     sink,
		log:      log,
		cancel:   cancel,
	}
	go b.listen(ctx)
	return b, nil
}

// Publish sends a transition to the shared channel.
func (b *Bridge) Publish(ctx context.Context, event sse.Event) {
	payload, err := json.Marshal(bridgeMessage{Origin: b.instance, Event: event})
	if err != nil {
		return
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn("redis broadcast publish failed", "error", err, "orderId", event.OrderID)
	}
}

// listen re-broadcasts messages from other instances into the local SSE
// registry.
func (b *Bridge) listen(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var bm bridgeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
				b.log.Warn("redis broadcast message malformed", "error", err)
				continue
			}
			if bm.Origin == b.instance {
				continue
			}
			b.sink.Broadcast(bm.Event)
		}
	}
}

// Close stops the subscriber loop and releases the connection.
func (b *Bridge) Close() error {
	b.cancel()
	return b.client.Close()
}
