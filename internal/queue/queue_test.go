package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spidermesh/frontier/internal/request"
)

// TestMemoryQueue tests in-memory request queue ordering.
func TestMemoryQueue(t *testing.T) {
	t.Parallel()

	t.Run("FIFO pops in push order", func(t *testing.T) {
		t.Parallel()

		q := NewMemoryFIFO()
		for _, u := range []string{"http://a.example/", "http://b.example/", "http://c.example/"} {
			if err := q.Push(request.NewRequest(u)); err != nil {
				t.Fatalf("push failed: %v", err)
			}
		}

		want := []string{"http://a.example/", "http://b.example/", "http://c.example/"}
		for i, u := range want {
			req, err := q.Pop()
			if err != nil {
				t.Fatalf("pop %d failed: %v", i, err)
			}
			if req == nil || req.URL != u {
				t.Errorf("pop %d = %v, want %s", i, req, u)
			}
		}
	})

	t.Run("LIFO pops in reverse push order", func(t *testing.T) {
		t.Parallel()

		q := NewMemoryLIFO()
		for _, u := range []string{"http://a.example/", "http://b.example/"} {
			if err := q.Push(request.NewRequest(u)); err != nil {
				t.Fatalf("push failed: %v", err)
			}
		}

		req, err := q.Pop()
		if err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if req.URL != "http://b.example/" {
			t.Errorf("LIFO pop = %s, want http://b.example/", req.URL)
		}
	})

	t.Run("pop on empty returns nil, nil", func(t *testing.T) {
		t.Parallel()

		q := NewMemoryFIFO()
		req, err := q.Pop()
		if req != nil || err != nil {
			t.Errorf("empty pop = (%v, %v), want (nil, nil)", req, err)
		}
	})

	t.Run("accepts unserializable requests", func(t *testing.T) {
		t.Parallel()

		req := request.NewRequest("http://example.com/")
		req.Meta.Set("callback", func() {})

		q := NewMemoryFIFO()
		if err := q.Push(req); err != nil {
			t.Fatalf("memory queue must accept any request: %v", err)
		}
		got, err := q.Pop()
		if err != nil || got != req {
			t.Errorf("expected the same request back, got (%v, %v)", got, err)
		}
	})
}

// TestDiskQueue tests the file-backed byte queue including persistence.
func TestDiskQueue(t *testing.T) {
	t.Parallel()

	t.Run("FIFO round trip", func(t *testing.T) {
		t.Parallel()

		q, err := NewDiskFIFO(filepath.Join(t.TempDir(), "p0"))
		if err != nil {
			t.Fatalf("failed to open disk queue: %v", err)
		}
		defer q.Close()

		records := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
		for _, r := range records {
			if err := q.Push(r); err != nil {
				t.Fatalf("push failed: %v", err)
			}
		}
		if q.Len() != 3 {
			t.Errorf("Len = %d, want 3", q.Len())
		}

		for i, want := range records {
			got, err := q.Pop()
			if err != nil {
				t.Fatalf("pop %d failed: %v", i, err)
			}
			if string(got) != string(want) {
				t.Errorf("pop %d = %q, want %q", i, got, want)
			}
		}
	})

	t.Run("LIFO pops most recent first", func(t *testing.T) {
		t.Parallel()

		q, err := NewDiskLIFO(filepath.Join(t.TempDir(), "p0"))
		if err != nil {
			t.Fatalf("failed to open disk queue: %v", err)
		}
		defer q.Close()

		_ = q.Push([]byte("old"))
		_ = q.Push([]byte("new"))

		got, err := q.Pop()
		if err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if string(got) != "new" {
			t.Errorf("LIFO pop = %q, want %q", got, "new")
		}
	})

	t.Run("close and reopen resumes remaining records", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "p1")

		q, err := NewDiskFIFO(path)
		if err != nil {
			t.Fatalf("failed to open disk queue: %v", err)
		}
		for i := range 5 {
			if err := q.Push(fmt.Appendf(nil, "record-%d", i)); err != nil {
				t.Fatalf("push failed: %v", err)
			}
		}
		// Consume two, leave three.
		if _, err := q.Pop(); err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if _, err := q.Pop(); err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if err := q.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		reopened, err := NewDiskFIFO(path)
		if err != nil {
			t.Fatalf("failed to reopen disk queue: %v", err)
		}
		defer reopened.Close()

		if reopened.Len() != 3 {
			t.Fatalf("reopened Len = %d, want 3", reopened.Len())
		}
		for i := 2; i < 5; i++ {
			got, err := reopened.Pop()
			if err != nil {
				t.Fatalf("pop failed: %v", err)
			}
			if want := fmt.Sprintf("record-%d", i); string(got) != want {
				t.Errorf("pop = %q, want %q", got, want)
			}
		}
	})

	t.Run("drained queue removes its files on close", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "p2")

		q, err := NewDiskFIFO(path)
		if err != nil {
			t.Fatalf("failed to open disk queue: %v", err)
		}
		_ = q.Push([]byte("only"))
		if _, err := q.Pop(); err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if err := q.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Error("record file should be removed when queue is drained")
		}
		if _, err := os.Stat(metaPath(path)); !errors.Is(err, os.ErrNotExist) {
			t.Error("meta file should be removed when queue is drained")
		}
	})

	t.Run("reopen without meta file scans all records", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "p3")

		q, err := NewDiskFIFO(path)
		if err != nil {
			t.Fatalf("failed to open disk queue: %v", err)
		}
		_ = q.Push([]byte("a"))
		_ = q.Push([]byte("b"))
		if err := q.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		// Simulate an unclean shutdown by deleting the sidecar.
		if err := os.Remove(metaPath(path)); err != nil {
			t.Fatalf("failed to remove meta file: %v", err)
		}

		reopened, err := NewDiskFIFO(path)
		if err != nil {
			t.Fatalf("failed to reopen without meta: %v", err)
		}
		defer reopened.Close()

		if reopened.Len() != 2 {
			t.Errorf("scanned Len = %d, want 2", reopened.Len())
		}
	})
}

// TestSerializable tests the codec adapter over a byte queue.
func TestSerializable(t *testing.T) {
	t.Parallel()

	t.Run("request round trip", func(t *testing.T) {
		t.Parallel()

		q := NewSerializable(NewMemoryBytesFIFO(), JSONCodec{})

		req := request.NewRequest("http://example.com/page")
		req.Priority = 7
		req.Meta.Set("depth", 2)

		if err := q.Push(req); err != nil {
			t.Fatalf("push failed: %v", err)
		}

		got, err := q.Pop()
		if err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if got.URL != req.URL || got.Priority != 7 {
			t.Errorf("round trip lost fields: %+v", got)
		}
		depth, ok, err := got.Meta.GetInt("depth")
		if err != nil || !ok || depth != 2 {
			t.Errorf("meta depth = (%d, %v, %v), want (2, true, nil)", depth, ok, err)
		}
	})

	t.Run("unserializable push reports ErrNotSerializable", func(t *testing.T) {
		t.Parallel()

		q := NewSerializable(NewMemoryBytesFIFO(), JSONCodec{})

		req := request.NewRequest("http://example.com/")
		req.Meta.Set("callback", func() {})

		err := q.Push(req)
		if !errors.Is(err, ErrNotSerializable) {
			t.Errorf("expected ErrNotSerializable, got %v", err)
		}
		if q.Len() != 0 {
			t.Error("failed push must not leave a record behind")
		}
	})
}

// TestPathSafe tests the filesystem-safe key encoding.
func TestPathSafe(t *testing.T) {
	t.Parallel()

	legal := regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

	t.Run("output is filesystem legal", func(t *testing.T) {
		t.Parallel()

		keys := []string{"0", "-3", "example.com/5", "héllo wörld", "日本語", "a b\tc"}
		for _, key := range keys {
			got := PathSafe(key)
			if !legal.MatchString(got) {
				t.Errorf("PathSafe(%q) = %q contains illegal characters", key, got)
			}
		}
	})

	t.Run("distinct keys never collide", func(t *testing.T) {
		t.Parallel()

		// These all transliterate to the same prefix; the hash suffix
		// must keep them apart.
		keys := []string{"a/b", "a:b", "a b", "a?b"}
		seen := make(map[string]string)
		for _, key := range keys {
			got := PathSafe(key)
			if prev, dup := seen[got]; dup {
				t.Errorf("PathSafe collision: %q and %q both map to %q", prev, key, got)
			}
			seen[got] = key
		}
	})

	t.Run("encoding is deterministic", func(t *testing.T) {
		t.Parallel()

		if PathSafe("example.com/0") != PathSafe("example.com/0") {
			t.Error("PathSafe must be deterministic")
		}
	})

	t.Run("transliterates accents instead of erasing them", func(t *testing.T) {
		t.Parallel()

		got := PathSafe("café")
		if got[:4] != "cafe" {
			t.Errorf("PathSafe(café) = %q, want cafe prefix", got)
		}
	})
}
