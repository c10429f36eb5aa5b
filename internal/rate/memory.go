package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter: misma semántica de ventana fija que RedisLimiter pero
// sobre un cache en proceso. Para despliegues de un solo nodo y tests.
type MemoryLimiter struct {
	cache  *gocache.Cache
	max    int64
	window time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  gocache.New(window, 2*window),
		max:    int64(max),
		window: window,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.window)
	winEnd := winStart.Add(l.window)
	ck := fmt.Sprintf("%s:%d", key, winStart.Unix())

	// Add falla si la key ya existe; en ese caso incrementamos.
	var hits int64
	if err := l.cache.Add(ck, int64(1), winEnd.Sub(now)); err == nil {
		hits = 1
	} else {
		n, err := l.cache.IncrementInt64(ck, 1)
		if err != nil {
			// la entrada expiró entre el Add y el Increment
			l.cache.Set(ck, int64(1), winEnd.Sub(now))
			n = 1
		}
		hits = n
	}

	allowed := hits <= l.max
	remaining := l.max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   winEnd.Sub(now),
	}
	if !allowed {
		res.RetryAfter = winEnd.Sub(now)
	}
	return res, nil
}
