package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glamhair/patglam-agent/internal/dialog"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}

	session := dialog.NewCallSession("call-1")
	session.Slots.City = "Campinas"
	if err := s.Put(ctx, session); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "call-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Slots.City != "Campinas" {
		t.Fatalf("city = %q", got.Slots.City)
	}

	// The stored copy must be isolated from later caller mutation.
	got.Slots.City = "mutated"
	again, _ := s.Get(ctx, "call-1")
	if again.Slots.City != "Campinas" {
		t.Fatal("Get returned a shared reference")
	}
}

func TestMemoryStoreTranscriptOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.AppendTurn(ctx, "call-2", dialog.Turn{
			Role:    dialog.RoleUser,
			Content: fmt.Sprintf("turn %d", i),
		})
		if err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	turns, err := s.Turns(ctx, "call-2")
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 5 {
		t.Fatalf("len = %d, want 5", len(turns))
	}
	for i, turn := range turns {
		if want := fmt.Sprintf("turn %d", i); turn.Content != want {
			t.Fatalf("turns[%d] = %q, want %q", i, turn.Content, want)
		}
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Put(ctx, dialog.NewCallSession("call-3"))
	s.AppendTurn(ctx, "call-3", dialog.Turn{Role: dialog.RoleUser, Content: "oi"})

	if err := s.Delete(ctx, "call-3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "call-3"); err != ErrNotFound {
		t.Fatalf("Get after delete err = %v, want ErrNotFound", err)
	}
	turns, err := s.Turns(ctx, "call-3")
	if err != nil {
		t.Fatalf("Turns after delete: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("transcript survived delete: %d turns", len(turns))
	}
}

func TestMemoryStoreConsumeOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Consume(ctx, "call-4")
	if err != nil || !first {
		t.Fatalf("first Consume = (%v, %v), want (true, nil)", first, err)
	}
	second, err := s.Consume(ctx, "call-4")
	if err != nil || second {
		t.Fatalf("second Consume = (%v, %v), want (false, nil)", second, err)
	}

	// Unknown ids are consumable exactly once too.
	if first, _ := s.Consume(ctx, "never-seen"); !first {
		t.Fatal("unknown id should be consumable once")
	}
}

func TestMemoryStoreConsumeOnceConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := s.Consume(ctx, "call-5")
			if err != nil {
				t.Errorf("Consume: %v", err)
				return
			}
			if first {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("winners = %d, want exactly 1", count)
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("call-6")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}

func TestMemoryStoreConsumeMarkerExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	clock := time.Now()
	s.now = func() time.Time { return clock }

	if first, _ := s.Consume(ctx, "call-ttl"); !first {
		t.Fatal("first Consume should win")
	}
	if first, _ := s.Consume(ctx, "call-ttl"); first {
		t.Fatal("second Consume inside the TTL should lose")
	}

	clock = clock.Add(callTTL + time.Minute)
	if first, _ := s.Consume(ctx, "call-ttl"); !first {
		t.Fatal("Consume after the TTL should win again")
	}
	if len(s.consumed) != 1 {
		t.Fatalf("consumed markers = %d, want 1 after expired entries are swept", len(s.consumed))
	}
}
