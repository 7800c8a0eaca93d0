package core

import (
	"errors"
	"sync"
	"time"
)

var ErrAccessTokenNotCached = errors.New("core: access token is not cached")

// AccessTokenCache holds one short-lived access token together with its
// declared lifetime. Nothing is persisted; every cold start forces one
// refresh call.
type AccessTokenCache struct {
	mu       sync.Mutex
	value    string
	issuedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewAccessTokenCache(now func() time.Time) *AccessTokenCache {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AccessTokenCache{now: now}
}

// Set records the token with issuance time of wall-clock now. A non-positive
// ttl means the cache is never trusted.
func (c *AccessTokenCache) Set(value string, ttl time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.issuedAt = c.now()
	c.ttl = ttl
}

func (c *AccessTokenCache) Valid() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked()
}

func (c *AccessTokenCache) validLocked() bool {
	if c.value == "" || c.ttl <= 0 {
		return false
	}
	return c.now().Before(c.issuedAt.Add(c.ttl))
}

// Get returns the cached token, failing when absent or expired.
func (c *AccessTokenCache) Get() (string, error) {
	if c == nil {
		return "", ErrAccessTokenNotCached
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validLocked() {
		return "", ErrAccessTokenNotCached
	}
	return c.value, nil
}

func (c *AccessTokenCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
	c.ttl = 0
}
