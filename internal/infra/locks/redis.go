package locks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"staybook/internal/domain/property"
)

var ErrLockNotAcquired = errors.New("locks: lock not acquired")

const lockKeyPrefix = "staybook:lock:property:"

// releaseScript deletes the key only when still owned by the caller, so an
// expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a per-property advisory lock backed by SET NX PX, for deployments
// running more than one replica of the engine. The TTL bounds how long a
// crashed holder can block a property.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Retry  time.Duration
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client, TTL: 10 * time.Second, Retry: 50 * time.Millisecond}
}

func (r *Redis) Lock(ctx context.Context, id property.PropertyID) (func(), error) {
	key := lockKeyPrefix + string(id)
	token := uuid.NewString()

	for {
		ok, err := r.Client.SetNX(ctx, key, token, r.ttl()).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { r.release(key, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry()):
		}
	}
}

func (r *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, r.Client, []string{key}, token).Err()
}

func (r *Redis) ttl() time.Duration {
	if r.TTL <= 0 {
		return 10 * time.Second
	}
	return r.TTL
}

func (r *Redis) retry() time.Duration {
	if r.Retry <= 0 {
		return 50 * time.Millisecond
	}
	return r.Retry
}
