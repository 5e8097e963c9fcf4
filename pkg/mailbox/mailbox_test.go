package mailbox

import (
	"sync"
	"testing"
)

func TestTakeIfSignaledReturnsOnce(t *testing.T) {
	t.Parallel()

	mb := New[string]()
	if replaced := mb.Publish("job-a"); replaced {
		t.Fatal("first publish reported a replacement")
	}

	got, ok := mb.TakeIfSignaled()
	if !ok || got != "job-a" {
		t.Fatalf("first take = (%q, %v), want (job-a, true)", got, ok)
	}

	got, ok = mb.TakeIfSignaled()
	if ok || got != "" {
		t.Fatalf("second take = (%q, %v), want empty", got, ok)
	}
}

func TestPublishOverwritesUntakenValue(t *testing.T) {
	t.Parallel()

	mb := New[string]()
	mb.Publish("job-a")
	if replaced := mb.Publish("job-b"); !replaced {
		t.Fatal("expected second publish to replace the pending value")
	}

	got, ok := mb.TakeIfSignaled()
	if !ok || got != "job-b" {
		t.Fatalf("take = (%q, %v), want (job-b, true)", got, ok)
	}
	if _, ok := mb.TakeIfSignaled(); ok {
		t.Fatal("job-a became observable after job-b was taken")
	}
	if got := mb.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
}

func TestTakeClearsReferenceToValue(t *testing.T) {
	t.Parallel()

	type job struct{ name string }

	mb := New[*job]()
	mb.Publish(&job{name: "a"})
	if _, ok := mb.TakeIfSignaled(); !ok {
		t.Fatal("expected pending job")
	}
	if mb.value != nil {
		t.Fatal("mailbox still references the taken job")
	}
	if mb.Signaled() {
		t.Fatal("signal still raised after take")
	}
}

func TestConcurrentPublishAndTake(t *testing.T) {
	t.Parallel()

	const total = 1000

	mb := New[int]()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= total; i++ {
			mb.Publish(i)
		}
	}()

	taken := 0
	last := 0
	for {
		if value, ok := mb.TakeIfSignaled(); ok {
			if value <= last {
				t.Fatalf("took %d after %d; values must arrive in publish order", value, last)
			}
			last = value
			taken++
		}
		if last == total {
			break
		}
	}
	wg.Wait()

	if uint64(taken)+mb.Dropped() != total {
		t.Fatalf("taken %d + dropped %d != published %d", taken, mb.Dropped(), total)
	}
}
