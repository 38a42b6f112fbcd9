package dupefilter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spidermesh/frontier/internal/request"
	"github.com/spidermesh/frontier/internal/stats"
)

// TestMemorySeen tests first-sighting semantics of the memory filter.
func TestMemorySeen(t *testing.T) {
	t.Parallel()

	t.Run("first sighting is false, later ones true", func(t *testing.T) {
		t.Parallel()

		f := NewMemory()
		if err := f.Open(t.Context()); err != nil {
			t.Fatalf("open failed: %v", err)
		}
		defer f.Close(context.Background(), "finished")

		req := request.NewRequest("http://example.com/a")

		seen, err := f.Seen(t.Context(), req)
		if err != nil || seen {
			t.Errorf("first Seen = (%v, %v), want (false, nil)", seen, err)
		}
		seen, err = f.Seen(t.Context(), req)
		if err != nil || !seen {
			t.Errorf("second Seen = (%v, %v), want (true, nil)", seen, err)
		}
	})

	t.Run("equivalent URLs share a sighting", func(t *testing.T) {
		t.Parallel()

		f := NewMemory()
		if err := f.Open(t.Context()); err != nil {
			t.Fatalf("open failed: %v", err)
		}
		defer f.Close(context.Background(), "finished")

		if seen, _ := f.Seen(t.Context(), request.NewRequest("http://example.com/a#frag")); seen {
			t.Error("first sighting should be false")
		}
		if seen, _ := f.Seen(t.Context(), request.NewRequest("http://EXAMPLE.com/a")); !seen {
			t.Error("normalized-equal URL should be seen")
		}
	})
}

// TestMemorySeenFile tests persistence across filter instances.
func TestMemorySeenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), SeenFileName)

	first := NewMemory(WithSeenFile(path))
	if err := first.Open(t.Context()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if seen, err := first.Seen(t.Context(), request.NewRequest("http://example.com/a")); err != nil || seen {
		t.Fatalf("Seen = (%v, %v), want (false, nil)", seen, err)
	}
	if err := first.Close(context.Background(), "paused"); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// A fresh instance over the same file must remember the sighting.
	second := NewMemory(WithSeenFile(path))
	if err := second.Open(t.Context()); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close(context.Background(), "finished")

	seen, err := second.Seen(t.Context(), request.NewRequest("http://example.com/a"))
	if err != nil || !seen {
		t.Errorf("resumed Seen = (%v, %v), want (true, nil)", seen, err)
	}

	// And new fingerprints keep appending.
	if seen, _ := second.Seen(t.Context(), request.NewRequest("http://example.com/b")); seen {
		t.Error("new URL should not be seen")
	}
}

// TestMemoryLog tests the once-then-silent duplicate logging and the
// filtered counter.
func TestMemoryLog(t *testing.T) {
	t.Parallel()

	collector := stats.NewMemory()
	f := NewMemory(WithStats(collector))

	req := request.NewRequest("http://example.com/dup")
	f.Log(req)
	f.Log(req)
	f.Log(req)

	if got := collector.Get(stats.Filtered); got != 3 {
		t.Errorf("filtered counter = %d, want 3", got)
	}
}

// TestSQLite tests the SQLite-backed filter.
func TestSQLite(t *testing.T) {
	t.Parallel()

	t.Run("first sighting is false, later ones true", func(t *testing.T) {
		t.Parallel()

		f := NewSQLite(t.TempDir())
		if err := f.Open(t.Context()); err != nil {
			t.Fatalf("open failed: %v", err)
		}
		defer f.Close(context.Background(), "finished")

		req := request.NewRequest("http://example.com/a")
		if seen, err := f.Seen(t.Context(), req); err != nil || seen {
			t.Errorf("first Seen = (%v, %v), want (false, nil)", seen, err)
		}
		if seen, err := f.Seen(t.Context(), req); err != nil || !seen {
			t.Errorf("second Seen = (%v, %v), want (true, nil)", seen, err)
		}
	})

	t.Run("fingerprints survive close and reopen", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		first := NewSQLite(dir)
		if err := first.Open(t.Context()); err != nil {
			t.Fatalf("open failed: %v", err)
		}
		if _, err := first.Seen(t.Context(), request.NewRequest("http://example.com/a")); err != nil {
			t.Fatalf("seen failed: %v", err)
		}
		if err := first.Close(context.Background(), "paused"); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		second := NewSQLite(dir)
		if err := second.Open(t.Context()); err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer second.Close(context.Background(), "finished")

		seen, err := second.Seen(t.Context(), request.NewRequest("http://example.com/a"))
		if err != nil || !seen {
			t.Errorf("resumed Seen = (%v, %v), want (true, nil)", seen, err)
		}

		// The database file should exist in the job directory.
		if _, err := os.Stat(filepath.Join(dir, DBFileName)); err != nil {
			t.Errorf("fingerprint database missing: %v", err)
		}
	})
}

// TestRedis exercises the Redis filter against a real server. It is
// skipped unless FRONTIER_REDIS_ADDR points at one.
func TestRedis(t *testing.T) {
	t.Parallel()

	addr := os.Getenv("FRONTIER_REDIS_ADDR")
	if addr == "" {
		t.Skip("set FRONTIER_REDIS_ADDR to run Redis filter tests")
	}

	f := NewRedis(addr, "frontier-test:")
	if err := f.Open(t.Context()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close(context.Background(), "finished")

	req := request.NewRequest("http://example.com/redis")
	if seen, err := f.Seen(t.Context(), req); err != nil || seen {
		t.Errorf("first Seen = (%v, %v), want (false, nil)", seen, err)
	}
	if seen, err := f.Seen(t.Context(), req); err != nil || !seen {
		t.Errorf("second Seen = (%v, %v), want (true, nil)", seen, err)
	}
}
