package attendance

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard serializes the duplicate check and append for one dedup key.
type Guard interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// LocalGuard is an in-process keyed mutex. It only covers a single API process.
type LocalGuard struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalGuard creates a guard with no held keys.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done.
func (g *LocalGuard) Lock(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	kl, ok := g.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		g.locks[key] = kl
	}
	kl.refs++
	g.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		g.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			g.release(key, kl)
		})
	}, nil
}

func (g *LocalGuard) release(key string, kl *keyLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(g.locks, key)
	}
}

// held returns the number of keys with waiters or holders.
func (g *LocalGuard) held() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a SET NX lock shared by every API replica using the same Redis.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisGuard builds a guard. ttl bounds how long a crashed holder blocks the key.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisGuard{client: client, prefix: "attendance:lock:", ttl: ttl, retry: 25 * time.Millisecond}
}

// Lock polls until the key is acquired or ctx is done.
func (g *RedisGuard) Lock(ctx context.Context, key string) (func(), error) {
	k := g.prefix + key
	token := uuid.NewString()
	for {
		ok, err := g.client.SetNX(ctx, k, token, g.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		t := time.NewTimer(g.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// release even if the request context was cancelled
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := unlockScript.Run(ctx, g.client, []string{k}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("release lock %s: %v", k, err)
			}
		})
	}, nil
}
