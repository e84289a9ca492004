package locks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockPrefix  = "ticket-lock:"
	redisLockTTL     = 30 * time.Second
	redisRetryPause  = 25 * time.Millisecond
	redisReleaseEval = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
)

var releaseScript = redis.NewScript(redisReleaseEval)

// redisTicketLocker serializes writers across processes with SET NX PX. The
// token guards against releasing a lock that expired and was re-acquired.
type redisTicketLocker struct {
	client *redis.Client
}

// NewRedisTicketLocker instantiates the redis-backed locker.
func NewRedisTicketLocker(client *redis.Client) TicketLocker {
	return &redisTicketLocker{client: client}
}

func (l *redisTicketLocker) Lock(ctx context.Context, ticketID string) (func(), error) {
	key := redisLockPrefix + ticketID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, redisLockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisRetryPause):
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
