package utils

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-user messages-per-minute budget. Limiters are
// created lazily per user; changing the configured rate replaces the user's
// limiter on the next call.
type RateLimiter struct {
	mu    sync.Mutex
	users map[string]*userLimiter
}

type userLimiter struct {
	perMinute int
	lim       *rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{users: make(map[string]*userLimiter)}
}

// Allow reports whether the user may send another message given a budget of
// perMinute messages per minute. A non-positive budget always allows.
func (r *RateLimiter) Allow(userID string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}
	r.mu.Lock()
	ul, ok := r.users[userID]
	if !ok || ul.perMinute != perMinute {
		ul = &userLimiter{
			perMinute: perMinute,
			lim:       rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		}
		r.users[userID] = ul
	}
	r.mu.Unlock()
	return ul.lim.Allow()
}
