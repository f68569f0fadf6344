package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowConsumesBucket(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("search", 3, 0.0001) {
			t.Fatalf("request %d should be allowed within capacity", i)
		}
	}
	if l.Allow("search", 3, 0.0001) {
		t.Fatal("request beyond capacity should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("search", 1, 0.0001) {
		t.Fatal("first search request should pass")
	}
	if l.Allow("search", 1, 0.0001) {
		t.Fatal("search bucket should be drained")
	}
	if !l.Allow("llm", 1, 0.0001) {
		t.Fatal("llm bucket should be untouched")
	}
}

func TestWaitRefills(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 50) {
		t.Fatal("initial token should be available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx, "k", 1, 50); err != nil {
		t.Fatalf("wait should succeed after refill: %v", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := New()
	l.Allow("k", 1, 0.0001)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "k", 1, 0.0001); err == nil {
		t.Fatal("wait should fail when context expires before refill")
	}
}
