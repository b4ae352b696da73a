package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

// Returned when a key has used up all its requests
type RateLimitedError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited for %s, retry in %s", e.Key, e.RetryAfter.Round(time.Second))
}

// Keeps a separate history of requests for every key (a channel id, for
// instance) and checks all the restrictions against it
type RateLimiter struct {
	mu           sync.Mutex
	restrictions []Restriction          // Restrictions to consider
	history      map[string][]time.Time // History of requests per key
	duration     time.Duration          // Longest restriction, older history is useless
	now          func() time.Time
}

func NewRateLimiter(restrictions []Restriction) *RateLimiter {
	rl := &RateLimiter{history: map[string][]time.Time{}, now: time.Now}
	// Restrictions are just a copy of the provided ones
	rl.restrictions = append(rl.restrictions, restrictions...)
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	return rl
}

// Decide if a request for this key is allowed. Allowed requests
// are recorded, rejected ones are not
func (rl *RateLimiter) Allow(key string) error {

	rl.mu.Lock()
	defer rl.mu.Unlock()

	currentTime := rl.now()
	rl.trim(key, currentTime)
	analysis := rl.analyse(key, currentTime)
	if !analysis.allowed {
		log.Warn().Str("key", key).Dur("wait", analysis.wait).Msg("Rejecting request because restrictions do not allow it")
		return &RateLimitedError{Key: key, RetryAfter: analysis.wait}
	}
	rl.history[key] = append(rl.history[key], currentTime)
	return nil
}

// Trim the history of a key, leaving only the requests
// that are young enough to be affected by at least one restriction.
// Times are stored in chronological order
func (rl *RateLimiter) trim(key string, currentTime time.Time) {
	history := rl.history[key]
	index := 0
	for i := len(history) - 1; i >= 0; i-- {
		if currentTime.Sub(history[i]) >= rl.duration {
			index = i + 1
			break
		}
	}
	if index == len(history) {
		delete(rl.history, key)
		return
	}
	rl.history[key] = history[index:]
}

func (rl *RateLimiter) analyse(key string, currentTime time.Time) Analysis {

	// Merge the analyses of every restriction
	var wait time.Duration = 0
	allowed := true
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history[key], currentTime)
		allowed = allowed && analysis.allowed
		if analysis.wait > wait {
			wait = analysis.wait
		}
	}
	return Analysis{allowed, wait}
}
