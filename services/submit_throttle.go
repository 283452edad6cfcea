package services

import (
	"math"
	"sync"
	"time"
)

const SubmitCooldownCapSeconds = 30

// SubmitThrottle slows down retries after failed submissions, per session:
// after n consecutive failures the next attempt waits min(30, 2^n) seconds.
type SubmitThrottle struct {
	mu    sync.Mutex
	state map[string]throttleEntry
	now   func() time.Time
}

type throttleEntry struct {
	failCount     int
	cooldownUntil time.Time
}

func NewSubmitThrottle() *SubmitThrottle {
	return &SubmitThrottle{state: make(map[string]throttleEntry), now: time.Now}
}

// WaitSeconds returns how long sessionID must wait before submitting again (0 if no cooldown).
func (t *SubmitThrottle) WaitSeconds(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.state[sessionID]
	if !ok {
		return 0
	}
	now := t.now()
	if now.Before(e.cooldownUntil) {
		return int(e.cooldownUntil.Sub(now).Seconds()) + 1 // round up
	}
	return 0
}

func (t *SubmitThrottle) RecordFailure(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.state[sessionID]
	e.failCount++
	e.cooldownUntil = t.now().Add(time.Duration(CooldownSecondsForFailCount(e.failCount)) * time.Second)
	t.state[sessionID] = e
}

func (t *SubmitThrottle) RecordSuccess(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.state, sessionID)
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > SubmitCooldownCapSeconds {
		return SubmitCooldownCapSeconds
	}
	return s
}
