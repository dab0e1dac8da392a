package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tickqueue/pkg/logger"
)

// RedisConfig describes how to reach the Redis server backing a Redis bus.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0" yaml:"url"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3" yaml:"retry_attempts"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s" yaml:"retry_interval"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s" yaml:"connect_timeout"`
	ChannelPrefix  string        `env:"REDIS_CHANNEL_PREFIX" envDefault:"tickqueue:events" yaml:"channel_prefix"`
}

// ConnectRedis dials Redis and pings it, retrying up to cfg.RetryAttempts times.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrRedisURL, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrRedisNotReady
}

// RedisHealthcheck returns a probe that pings the client.
func RedisHealthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Redis is a Bus that publishes through Redis pub/sub.
// Every process sharing the channel prefix observes every event, including its
// own: local subscribers are notified when the message comes back from Redis,
// not on the publishing goroutine.
type Redis struct {
	client redis.UniversalClient
	prefix string
	local  *Memory
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewRedis subscribes to the prefix pattern and starts the receive loop.
// The loop stops when ctx is cancelled or Close is called.
func NewRedis(ctx context.Context, client redis.UniversalClient, opts ...Option) (*Redis, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	ps := client.PSubscribe(ctx, o.prefix+":*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Join(ErrSubscribeFailed, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r := &Redis{
		client: client,
		prefix: o.prefix,
		local:  NewMemory(WithLogger(o.logger)),
		pubsub: ps,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: o.logger,
	}
	go r.receive(loopCtx)
	return r, nil
}

// SubscribeTopic registers a local handler for events arriving on topic.
func (r *Redis) SubscribeTopic(topic string, h Handler) Token {
	return r.local.SubscribeTopic(topic, h)
}

// Unsubscribe removes a local handler.
func (r *Redis) Unsubscribe(tok Token) bool {
	return r.local.Unsubscribe(tok)
}

// PublishTopic JSON-encodes event and publishes it on the topic channel.
// RawEvent payloads are forwarded unchanged.
func (r *Redis) PublishTopic(ctx context.Context, topic string, event any) error {
	payload, err := encode(event)
	if err != nil {
		return errors.Join(ErrEncodeEvent, err)
	}
	if err := r.client.Publish(ctx, r.channel(topic), payload).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

// Close stops the receive loop and drops local subscriptions.
func (r *Redis) Close() error {
	r.cancel()
	err := r.pubsub.Close()
	<-r.done
	_ = r.local.Close()
	return err
}

func (r *Redis) channel(topic string) string {
	return r.prefix + ":" + topic
}

func (r *Redis) receive(ctx context.Context) {
	defer close(r.done)

	ch := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			topic, found := strings.CutPrefix(msg.Channel, r.prefix+":")
			if !found {
				continue
			}
			if err := r.local.PublishTopic(ctx, topic, RawEvent(msg.Payload)); err != nil {
				r.logger.WarnContext(ctx, "dropping redis event",
					logger.Component("eventbus"),
					logger.Topic(topic),
					logger.Error(err))
			}
		}
	}
}

func encode(event any) ([]byte, error) {
	if raw, ok := event.(RawEvent); ok {
		return raw, nil
	}
	return json.Marshal(event)
}
