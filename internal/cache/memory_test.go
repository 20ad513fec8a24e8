package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_SetAndGet(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "product:1", []byte(`{"id":1}`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := s.Get(ctx, "product:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != `{"id":1}` {
		t.Errorf("Expected %q, got %q", `{"id":1}`, val)
	}
}

func TestMemoryStore_MissOnAbsentKey(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()

	_, err := s.Get(context.Background(), "product:404")
	if !errors.Is(err, ErrMiss) {
		t.Errorf("Expected ErrMiss, got %v", err)
	}
}

func TestMemoryStore_ExpiredEntryIsMiss(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	s.Set(ctx, "cart:1", []byte("state"), 20*time.Millisecond)

	if _, err := s.Get(ctx, "cart:1"); err != nil {
		t.Fatalf("Expected hit before expiry, got %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	// No janitor configured, so the entry is still physically present but
	// must read as a miss.
	if _, err := s.Get(ctx, "cart:1"); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected ErrMiss after expiry, got %v", err)
	}
}

func TestMemoryStore_SetResetsTTL(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	s.Set(ctx, "product:7", []byte("v1"), 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	s.Set(ctx, "product:7", []byte("v2"), 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// The second Set restarted the TTL, so the entry is still live.
	val, err := s.Get(ctx, "product:7")
	if err != nil {
		t.Fatalf("Expected hit, got %v", err)
	}
	if string(val) != "v2" {
		t.Errorf("Expected v2, got %s", val)
	}
}

func TestMemoryStore_DeleteByPrefix(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	s.Set(ctx, "search:abc", []byte("1"), time.Minute)
	s.Set(ctx, "search:def", []byte("2"), time.Minute)
	s.Set(ctx, "product:1", []byte("3"), time.Minute)

	if err := s.DeleteByPrefix(ctx, "search:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	if _, err := s.Get(ctx, "search:abc"); !errors.Is(err, ErrMiss) {
		t.Error("Expected search:abc to be deleted")
	}
	if _, err := s.Get(ctx, "search:def"); !errors.Is(err, ErrMiss) {
		t.Error("Expected search:def to be deleted")
	}
	if _, err := s.Get(ctx, "product:1"); err != nil {
		t.Error("Expected product:1 to survive prefix delete")
	}
}

func TestMemoryStore_JanitorSweepsExpired(t *testing.T) {
	s := NewMemory(10 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	s.Set(ctx, "search:old", []byte("x"), 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	if got := s.Stats().Items; got != 0 {
		t.Errorf("Expected janitor to remove expired entry, items=%d", got)
	}
}

func TestMemoryStore_IncrementWindow(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Increment(ctx, "rate_limit:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if got != want {
			t.Errorf("Increment = %d, want %d", got, want)
		}
	}
}

func TestMemoryStore_IncrementResetsAfterWindow(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	s.Increment(ctx, "rate_limit:x", 20*time.Millisecond)
	s.Increment(ctx, "rate_limit:x", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	got, err := s.Increment(ctx, "rate_limit:x", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if got != 1 {
		t.Errorf("Expected counter reset to 1 after window, got %d", got)
	}
}

func TestMemoryStore_IncrementConcurrent(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.Increment(ctx, "rate_limit:race", time.Minute)
		}()
	}
	wg.Wait()

	got, err := s.Increment(ctx, "rate_limit:race", time.Minute)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if got != workers+1 {
		t.Errorf("Expected count %d after %d concurrent increments, got %d", workers+1, workers, got)
	}
}

func TestMemoryStore_ExpireAt(t *testing.T) {
	s := NewMemory(0)
	defer s.Close()
	ctx := context.Background()

	before := time.Now()
	s.Set(ctx, "cart:9", []byte("v"), time.Minute)

	exp, ok, err := s.ExpireAt(ctx, "cart:9")
	if err != nil || !ok {
		t.Fatalf("ExpireAt = (%v, %v, %v)", exp, ok, err)
	}
	if exp.Before(before.Add(50*time.Second)) || exp.After(before.Add(70*time.Second)) {
		t.Errorf("Expiry %v not about a minute out from %v", exp, before)
	}

	if _, ok, _ := s.ExpireAt(ctx, "cart:404"); ok {
		t.Error("Expected no expiry for absent key")
	}
}

func TestMemoryStore_ClosedIsUnavailable(t *testing.T) {
	s := NewMemory(0)
	ctx := context.Background()
	s.Set(ctx, "product:1", []byte("v"), time.Minute)
	s.Close()

	if _, err := s.Get(ctx, "product:1"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from closed store, got %v", err)
	}
	if err := s.Set(ctx, "product:2", []byte("v"), time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from closed store, got %v", err)
	}
	if _, err := s.Increment(ctx, "rate_limit:a", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable from closed store, got %v", err)
	}
}
