package events

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Router publishes events on a watermill transport. Without options it uses
// an in-process go channel pubsub.
type Router struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	logger     watermill.LoggerAdapter

	beforeSubscribe func(ctx context.Context, topic string) error

	closeOnce sync.Once
	closers   []func() error
}

var _ Sink = &Router{}

type RouterOption func(*Router)

func WithPublisher(p message.Publisher) RouterOption {
	return func(r *Router) { r.Publisher = p }
}

func WithSubscriber(s message.Subscriber) RouterOption {
	return func(r *Router) { r.Subscriber = s }
}

// WithSubscribeHook runs f before every Subscribe; an error aborts it.
func WithSubscribeHook(f func(ctx context.Context, topic string) error) RouterOption {
	return func(r *Router) { r.beforeSubscribe = f }
}

// WithCloser registers an extra resource released on Close.
func WithCloser(f func() error) RouterOption {
	return func(r *Router) { r.closers = append(r.closers, f) }
}

func NewRouter(opts ...RouterOption) *Router {
	r := &Router{logger: NewWatermillLogger(log.Logger)}
	for _, o := range opts {
		o(r)
	}
	if r.Publisher == nil || r.Subscriber == nil {
		goCh := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, r.logger)
		if r.Publisher == nil {
			r.Publisher = goCh
		}
		if r.Subscriber == nil {
			r.Subscriber = goCh
		}
	}
	return r
}

// PublishEvent implements Sink. Delivery errors are logged, not returned.
func (r *Router) PublishEvent(e Event) {
	if err := r.Publish(e); err != nil {
		log.Warn().Err(err).Str("type", string(e.Type)).Msg("failed to publish event")
	}
}

func (r *Router) Publish(e Event) error {
	if r == nil || r.Publisher == nil {
		return errors.New("event router is not initialized")
	}
	b, err := e.Marshal()
	if err != nil {
		return err
	}
	return errors.Wrap(r.Publisher.Publish(e.Topic(), message.NewMessage(uuid.NewString(), b)), "publish event")
}

// Subscribe decodes events from topic until ctx is done.
func (r *Router) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	if r == nil || r.Subscriber == nil {
		return nil, errors.New("event router is not initialized")
	}
	if r.beforeSubscribe != nil {
		if err := r.beforeSubscribe(ctx, topic); err != nil {
			return nil, err
		}
	}
	ch, err := r.Subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, errors.Wrapf(err, "subscribe %s", topic)
	}
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range ch {
			e, err := Unmarshal(msg.Payload)
			msg.Ack()
			if err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("failed to decode event")
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *Router) Close() error {
	var errs []error
	r.closeOnce.Do(func() {
		if r.Publisher != nil {
			if err := r.Publisher.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if r.Subscriber != nil && any(r.Subscriber) != any(r.Publisher) {
			if err := r.Subscriber.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		for _, f := range r.closers {
			if err := f(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	if len(errs) > 0 {
		return errors.Wrapf(errs[0], "close event router (%d errors)", len(errs))
	}
	return nil
}
