package attendance

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, g Guard) {
	t.Helper()
	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := g.Lock(context.Background(), "Math|t@x.com|asha@x.com|2026-10-18")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

func TestLocalGuard(t *testing.T) {
	g := NewLocalGuard()
	exercise(t, g)
	assert.Zero(t, g.held(), "idle keys are dropped")

	unlock, err := g.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// other keys are independent
	u2, err := g.Lock(context.Background(), "other")
	require.NoError(t, err)
	u2()

	unlock()
	unlock() // idempotent
	assert.Zero(t, g.held())
}

func TestRedisGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewRedisGuard(client, time.Second)
	g.retry = time.Millisecond
	exercise(t, g)
	assert.False(t, mr.Exists("attendance:lock:Math|t@x.com|asha@x.com|2026-10-18"))

	unlock, err := g.Lock(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, mr.Exists("attendance:lock:k"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Lock(ctx, "k")
	assert.Error(t, err)

	// an expired holder cannot release a lock taken over by someone else
	mr.FastForward(2 * time.Second)
	u2, err := g.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	assert.True(t, mr.Exists("attendance:lock:k"))
	u2()
	assert.False(t, mr.Exists("attendance:lock:k"))
}
