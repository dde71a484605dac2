package mutex

import (
	"fmt"
	"testing"
	"time"
)

func TestLocalLocksAreDroppedAfterUse(t *testing.T) {
	builder := NewBuilder("")
	for i := 0; i < 100; i++ {
		lock := builder.Link(int64(i), fmt.Sprintf("show-%v", i))
		if err := lock.Lock(); err != nil {
			t.Fatalf("Lock: %v", err)
		}
		if ok, err := lock.Unlock(); !ok || err != nil {
			t.Fatalf("Unlock: %v %v", ok, err)
		}
	}
	failed := builder.Job("releases", time.Minute)
	held := builder.Job("releases", time.Minute)
	if err := held.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := failed.Lock(); err == nil {
		t.Fatal("expected second job lock to fail")
	}
	if n := builder.local.size(); n != 1 {
		t.Fatalf("%d entries while one job lock is held", n)
	}
	if _, err := held.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if ok, _ := failed.Unlock(); ok {
		t.Fatal("a lock that was never taken can't be released")
	}
	if n := builder.local.size(); n != 0 {
		t.Fatalf("%d entries left after every lock was released", n)
	}
}

func TestLocalLockEntryKeptForWaiters(t *testing.T) {
	builder := NewBuilder("")
	first := builder.Link(1, "one-piece")
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	acquired := make(chan Mutex)
	go func() {
		second := builder.Link(1, "one-piece")
		if err := second.Lock(); err != nil {
			t.Error(err)
		}
		acquired <- second
	}()
	for builder.local.entryRefs("user:1:show:one-piece") != 2 {
		time.Sleep(time.Millisecond)
	}
	if _, err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	second := <-acquired
	if n := builder.local.size(); n != 1 {
		t.Fatalf("entry dropped while still held, %d entries", n)
	}
	if _, err := second.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if n := builder.local.size(); n != 0 {
		t.Fatalf("%d entries left", n)
	}
}

func (l *localLocks) entryRefs(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.locks[key]; ok {
		return entry.refs
	}
	return 0
}

func (l *localLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
