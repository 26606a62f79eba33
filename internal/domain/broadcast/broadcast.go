// Package broadcast fans caption updates out to downstream subscribers over
// Redis pub/sub. Delivery is best effort; publish failures are logged and
// never propagate back into the caption pipeline.
package broadcast

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"captionkit-server-go/internal/domain/caption"
	"captionkit-server-go/internal/platform/config"
	platformerrors "captionkit-server-go/internal/platform/errors"
	"captionkit-server-go/internal/platform/logging"
)

// Event names carried in the published payload.
const (
	EventTranscription = "onTranscription"
	EventPartial       = "onPartial"
)

// Message is the wire payload published to a channel.
type Message struct {
	Event string          `json:"event"`
	Data  []caption.Event `json:"data"`
}

// Broadcaster publishes caption updates to a channel key.
type Broadcaster interface {
	// PublishCaptions sends the recent default-sequence window. complete
	// selects between the final and partial event names.
	PublishCaptions(ctx context.Context, channelKey string, events []caption.Event, complete bool) error
	// PublishTranslation sends a language's recent translated window.
	PublishTranslation(ctx context.Context, channelKey, lang string, events []caption.Event) error
	Close() error
}

// Publisher is the Redis-backed Broadcaster.
type Publisher struct {
	client redis.UniversalClient
	prefix string
	logger *logging.Logger
}

func New(cfg config.RedisConfig, logger *logging.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "broadcast.new",
			"redis ping failed", err)
	}

	return &Publisher{
		client: client,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client redis.UniversalClient, prefix string, logger *logging.Logger) *Publisher {
	return &Publisher{client: client, prefix: prefix, logger: logger}
}

func (p *Publisher) PublishCaptions(ctx context.Context, channelKey string, events []caption.Event, complete bool) error {
	event := EventPartial
	if complete {
		event = EventTranscription
	}
	return p.publish(ctx, channelKey, Message{Event: event, Data: events})
}

func (p *Publisher) PublishTranslation(ctx context.Context, channelKey, lang string, events []caption.Event) error {
	return p.publish(ctx, channelKey, Message{Event: EventTranscription + ":" + lang, Data: events})
}

func (p *Publisher) publish(ctx context.Context, channelKey string, msg Message) error {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "broadcast.publish",
			"payload marshal failed", err)
	}

	if err := p.client.Publish(ctx, p.prefix+channelKey, payload).Err(); err != nil {
		p.logger.WarnTag("Broadcast", "publish to %s failed: %v", channelKey, err)
		return platformerrors.Wrap(platformerrors.KindTransport, "broadcast.publish",
			"redis publish failed", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

// Nop is the Broadcaster used when Redis is disabled.
type Nop struct{}

func (Nop) PublishCaptions(context.Context, string, []caption.Event, bool) error { return nil }
func (Nop) PublishTranslation(context.Context, string, string, []caption.Event) error {
	return nil
}
func (Nop) Close() error { return nil }
