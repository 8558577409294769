package keymutex

import (
	"sync"
	"testing"
	"time"
)

func TestLockSerializesSameKey(t *testing.T) {
	g := New()

	const workers = 16
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Lock("alice")
			defer g.Unlock("alice")
			// Unsynchronized on purpose; the keyed lock is the only guard.
			c := counter
			time.Sleep(time.Millisecond)
			counter = c + 1
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("expected %d increments, got %d", workers, counter)
	}
}

func TestLockIndependentKeysDoNotBlock(t *testing.T) {
	g := New()

	g.Lock("alice")
	defer g.Unlock("alice")

	done := make(chan struct{})
	go func() {
		g.Lock("bob")
		g.Unlock("bob")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key must not block")
	}
}

func TestUnlockUnheldKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unlock of unheld key")
		}
	}()
	New().Unlock("ghost")
}

func TestEntryFreedAfterLastUnlock(t *testing.T) {
	g := New()

	g.Lock("alice")
	g.Unlock("alice")

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.locks) != 0 {
		t.Fatalf("expected empty lock table, got %d entries", len(g.locks))
	}
}
