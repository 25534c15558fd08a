package locksvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/juku/core"
)

const (
	keyPrefix  = "juku:lock:"
	retryDelay = 25 * time.Millisecond
)

// releaseScript deletes a lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker locks keys across processes sharing a redis server.
// Locks expire after ttl so a crashed holder cannot block edits forever.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	log    core.Logger
}

var _ core.Locker = (*RedisLocker)(nil)

// NewRedisClient connects to redis and checks the connection.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewRedisLocker(client redis.UniversalClient, conf core.LockConfig, log core.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: conf.TTL, wait: conf.Wait, log: log}
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	held := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			// a cancelled ctx must not leave locks behind until ttl
			if err := releaseScript.Run(context.Background(), l.client, []string{held[i]}, token).Err(); err != nil {
				l.log.Warn("releasing lock failed", err, map[string]interface{}{"key": held[i]})
			}
		}
	}

	for _, key := range sortedKeys(keys) {
		rkey := keyPrefix + key
		for {
			ok, err := l.client.SetNX(ctx, rkey, token, l.ttl).Result()
			if err != nil {
				release()
				return nil, errors.Wrapf(err, "locking %s", key)
			}
			if ok {
				held = append(held, rkey)
				break
			}
			if time.Now().After(deadline) {
				release()
				return nil, core.ErrLockTimeout
			}
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				release()
				return nil, ctx.Err()
			}
		}
	}

	return releaseOnce(release), nil
}
