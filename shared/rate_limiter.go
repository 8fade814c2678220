package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestRateLimiter enforces a minimum delay between outbound requests
// to stay within the broker's and the feeds' rate tolerance.
type RequestRateLimiter struct {
	minimumDelay    time.Duration
	lastRequestTime time.Time
	mutex           sync.Mutex
	requestCount    int64
}

// NewRequestRateLimiter creates a rate limiter with the given minimum delay
func NewRequestRateLimiter(minimumDelay time.Duration) *RequestRateLimiter {
	return &RequestRateLimiter{
		minimumDelay:    minimumDelay,
		lastRequestTime: time.Now(),
	}
}

// Wait blocks until the minimum delay has elapsed since the last request
func (l *RequestRateLimiter) Wait() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	elapsed := time.Since(l.lastRequestTime)
	if elapsed < l.minimumDelay {
		remaining := l.minimumDelay - elapsed
		logrus.WithFields(logrus.Fields{
			"component":       "RequestRateLimiter",
			"remaining_delay": remaining,
			"request_count":   l.requestCount + 1,
		}).Debug("Enforcing rate limit delay")
		time.Sleep(remaining)
	}

	l.lastRequestTime = time.Now()
	l.requestCount++
}

// RequestCount returns the total number of requests processed
func (l *RequestRateLimiter) RequestCount() int64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.requestCount
}
