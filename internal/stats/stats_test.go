package stats

import (
	"sync"
	"testing"
)

// TestMemory tests the in-memory counter collector.
func TestMemory(t *testing.T) {
	t.Parallel()

	t.Run("unknown keys read as zero", func(t *testing.T) {
		t.Parallel()

		m := NewMemory()
		if m.Get("never/incremented") != 0 {
			t.Error("unknown key should read as zero")
		}
	})

	t.Run("inc and add accumulate", func(t *testing.T) {
		t.Parallel()

		m := NewMemory()
		m.Inc(Enqueued)
		m.Inc(Enqueued)
		m.Add(Enqueued, 3)

		if got := m.Get(Enqueued); got != 5 {
			t.Errorf("Get = %d, want 5", got)
		}
	})

	t.Run("snapshot is a detached copy", func(t *testing.T) {
		t.Parallel()

		m := NewMemory()
		m.Inc(Dequeued)

		snap := m.Snapshot()
		snap[Dequeued] = 99

		if m.Get(Dequeued) != 1 {
			t.Error("mutating a snapshot must not affect the collector")
		}
	})

	t.Run("concurrent readers are safe", func(t *testing.T) {
		t.Parallel()

		m := NewMemory()
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					m.Inc(Filtered)
					_ = m.Snapshot()
				}
			}()
		}
		wg.Wait()

		if got := m.Get(Filtered); got != 800 {
			t.Errorf("Get = %d, want 800", got)
		}
	})
}
