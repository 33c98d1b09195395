package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatfront/pkg/events"
)

// BuildRouter constructs an events.Router backed by Redis Streams when enabled.
// If settings.Enabled is false, it returns the default in-memory router.
func BuildRouter(s Settings) (*events.Router, error) {
	if !s.Enabled {
		return events.NewRouter(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}
	logger := events.NewWatermillLogger(log.Logger)

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, errors.Wrap(err, "redis subscriber")
	}

	log.Info().Str("addr", s.Addr).Str("group", s.Group).Str("consumer", s.Consumer).Msg("publishing engine events on redis streams")
	return events.NewRouter(
		events.WithPublisher(message.Publisher(pub)),
		events.WithSubscriber(message.Subscriber(sub)),
		events.WithSubscribeHook(func(ctx context.Context, topic string) error {
			return tailGroup(ctx, client, topic, s.Group)
		}),
		events.WithCloser(client.Close),
	), nil
}

// tailGroup creates group on stream at $ so a new session topic is read from
// now on instead of being replayed from the start.
func tailGroup(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	switch {
	case err == nil:
		log.Debug().Str("stream", stream).Str("group", group).Msg("created consumer group at tail")
		return nil
	case strings.HasPrefix(err.Error(), "BUSYGROUP"):
		return nil
	default:
		return errors.Wrapf(err, "create group %s on %s", group, stream)
	}
}
