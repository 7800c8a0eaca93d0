package core

import (
	"errors"
	"testing"
	"time"
)

func TestAccessTokenCache_ServesUntilExpiry(t *testing.T) {
	now := testClock
	cache := NewAccessTokenCache(func() time.Time { return now })

	cache.Set("token-a", time.Minute)
	got, err := cache.Get()
	if err != nil {
		t.Fatalf("get cached token: %v", err)
	}
	if got != "token-a" {
		t.Fatalf("unexpected token: %s", got)
	}

	now = now.Add(59 * time.Second)
	if _, err := cache.Get(); err != nil {
		t.Fatalf("token expired early: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := cache.Get(); !errors.Is(err, ErrAccessTokenNotCached) {
		t.Fatalf("expected ErrAccessTokenNotCached, got %v", err)
	}
}

func TestAccessTokenCache_NonPositiveTTLNeverTrusted(t *testing.T) {
	cache := NewAccessTokenCache(fixedNow)
	cache.Set("token-a", 0)
	if _, err := cache.Get(); !errors.Is(err, ErrAccessTokenNotCached) {
		t.Fatalf("expected zero ttl to be untrusted, got %v", err)
	}
	if cache.Valid() {
		t.Fatalf("expected cache to report invalid")
	}
}

func TestAccessTokenCache_Clear(t *testing.T) {
	cache := NewAccessTokenCache(fixedNow)
	cache.Set("token-a", time.Hour)
	cache.Clear()
	if _, err := cache.Get(); !errors.Is(err, ErrAccessTokenNotCached) {
		t.Fatalf("expected cleared cache to miss, got %v", err)
	}
}
