package telemetry

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// QuotaStatus reports daily API budget usage.
type QuotaStatus struct {
	Used      int
	Limit     int
	Remaining int
	ResetsAt  time.Time
}

// Limiter enforces both a per-second request rate and a daily request quota.
// The daily counter resets at local midnight.
type Limiter struct {
	rl *rate.Limiter

	mu       sync.Mutex
	dayLimit int
	used     int
	day      time.Time
	now      func() time.Time
}

// NewLimiter creates a limiter allowing perSec requests per second (with an
// equal burst) and perDay requests per calendar day.
func NewLimiter(perSec, perDay int) *Limiter {
	if perSec < 1 {
		perSec = 1
	}
	return &Limiter{
		rl:       rate.NewLimiter(rate.Limit(perSec), perSec),
		dayLimit: perDay,
		now:      time.Now,
	}
}

func (l *Limiter) rollDay() {
	now := l.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !today.Equal(l.day) {
		l.day = today
		l.used = 0
	}
}

// Acquire reserves one request, blocking for the rate limiter if needed.
// Returns ErrQuotaExceeded once the daily budget is spent.
func (l *Limiter) Acquire() error {
	l.mu.Lock()
	l.rollDay()
	if l.dayLimit > 0 && l.used >= l.dayLimit {
		l.mu.Unlock()
		return ErrQuotaExceeded
	}
	l.used++
	l.mu.Unlock()

	res := l.rl.Reserve()
	if !res.OK() {
		return ErrRateLimited
	}
	time.Sleep(res.Delay())
	return nil
}

// Status returns the current daily quota usage.
func (l *Limiter) Status() QuotaStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay()

	remaining := l.dayLimit - l.used
	if l.dayLimit <= 0 {
		remaining = -1
	} else if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{
		Used:      l.used,
		Limit:     l.dayLimit,
		Remaining: remaining,
		ResetsAt:  l.day.Add(24 * time.Hour),
	}
}
