package github

import "sync"

// breaker counts failures per logical endpoint across calls
type breaker struct {
	mu       sync.Mutex
	failures map[string]int
}

func newBreaker() *breaker {
	return &breaker{failures: make(map[string]int)}
}

// Fail records one failure for key and returns the new count
func (b *breaker) Fail(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key]++
	return b.failures[key]
}

// Count returns the failures recorded for key
func (b *breaker) Count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[key]
}

// Reset forgets key after a success
func (b *breaker) Reset(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, key)
}
