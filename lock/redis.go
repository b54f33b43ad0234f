package lock

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Redis connection errors.
var (
	ErrEmptyConnectionURL = errors.New("lock: empty redis connection URL")
	ErrFailedToParseURL   = errors.New("lock: failed to parse redis connection URL")
	ErrConnectionFailed   = errors.New("lock: failed to establish redis connection")
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Option configures a Redis locker.
type Option func(*Redis)

// WithTTL sets how long a lock is held if its owner never releases it.
// Default: 30 seconds
func WithTTL(d time.Duration) Option {
	return func(r *Redis) {
		r.ttl = d
	}
}

// WithRetryInterval sets how often a contended lock is retried.
// Default: 50 milliseconds
func WithRetryInterval(d time.Duration) Option {
	return func(r *Redis) {
		r.retryInterval = d
	}
}

// WithPrefix sets the key prefix.
// Default: "domainauth:lock:"
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithLogger sets the logger that reports failed releases.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Redis) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Redis is a Locker backed by SET NX PX with token-checked release.
type Redis struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	prefix        string
	logger        *slog.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis creates a Redis locker on an existing client.
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	r := &Redis{
		client:        client,
		ttl:           30 * time.Second,
		retryInterval: 50 * time.Millisecond,
		prefix:        "domainauth:lock:",
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lock polls until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	name := r.prefix + key
	token := ulid.Make().String()

	for {
		ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrNotAcquired, ctx.Err())
			}
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-time.After(r.retryInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(name, token) })
	}, nil
}

// release deletes the lock key if it still holds token. A failure leaves the
// key in place until its TTL expires.
func (r *Redis) release(name, token string) {
	// The caller's context may already be canceled.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, r.client, []string{name}, token).Err(); err != nil {
		r.logger.WarnContext(ctx, "lock release failed",
			slog.String("key", name),
			slog.Duration("expires_in", r.ttl),
			slog.Any("error", err),
		)
	}
}

// OpenRedis creates a Redis client from a redis:// or rediss:// URL and
// pings it, retrying with a linearly growing delay.
func OpenRedis(ctx context.Context, url string, attempts int, interval time.Duration) (redis.UniversalClient, error) {
	if url == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrFailedToParseURL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}

	for i := range max(attempts, 1) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectionFailed, ctx.Err())
		case <-time.After(time.Duration(i+1) * interval):
		}
	}

	return nil, ErrConnectionFailed
}
