package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive leases stored in Redis.
type Locker struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewLocker(rdb redis.UniversalClient) *Locker {
	return &Locker{rdb: rdb, prefix: "library:"}
}

// Lease is a held lock. It expires on its own after the TTL it was taken with.
type Lease struct {
	rdb   redis.UniversalClient
	key   string
	token string
}

func (l *Locker) key(name string) string { return l.prefix + name }

// TryAcquire takes the lock named name for ttl. It returns (nil, nil) when the
// lock is held by someone else.
func (l *Locker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	key := l.key(name)

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{rdb: l.rdb, key: key, token: token}, nil
}

// Release gives the lock back if it is still ours. Releasing an expired or
// stolen lease is not an error.
func (le *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, le.rdb, []string{le.key}, le.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", le.key, err)
	}
	return nil
}

func (le *Lease) Key() string { return le.key }

// NamedLock binds a lock name and TTL so callers only decide when to take it.
type NamedLock struct {
	locker *Locker
	name   string
	ttl    time.Duration
}

func (l *Locker) Named(name string, ttl time.Duration) *NamedLock {
	return &NamedLock{locker: l, name: name, ttl: ttl}
}

// TryLock reports ok=false without error when another holder has the lock.
func (n *NamedLock) TryLock(ctx context.Context) (unlock func(context.Context) error, ok bool, err error) {
	lease, err := n.locker.TryAcquire(ctx, n.name, n.ttl)
	if err != nil || lease == nil {
		return nil, false, err
	}
	return lease.Release, true, nil
}
