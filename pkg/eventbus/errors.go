package eventbus

import "errors"

var (
	// ErrBusClosed is returned when publishing on a closed bus.
	ErrBusClosed = errors.New("eventbus: bus is closed")

	// ErrEncodeEvent is returned when an event cannot be serialized for transport.
	ErrEncodeEvent = errors.New("eventbus: failed to encode event")

	// ErrPublishFailed wraps transport errors returned while publishing.
	ErrPublishFailed = errors.New("eventbus: publish failed")

	// ErrSubscribeFailed wraps transport errors returned while subscribing.
	ErrSubscribeFailed = errors.New("eventbus: subscribe failed")

	// ErrRedisURL is returned when the Redis connection URL cannot be parsed.
	ErrRedisURL = errors.New("eventbus: failed to parse redis connection url")

	// ErrRedisNotReady is returned when every connection attempt failed.
	ErrRedisNotReady = errors.New("eventbus: redis did not become ready")

	// ErrHealthcheckFailed is returned when the Redis ping fails.
	ErrHealthcheckFailed = errors.New("eventbus: redis healthcheck failed")
)
