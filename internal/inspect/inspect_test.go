package inspect

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spidermesh/frontier/internal/config"
	"github.com/spidermesh/frontier/internal/request"
	"github.com/spidermesh/frontier/internal/scheduler"
)

// buildJobDir runs a short crawl session and closes it, leaving a
// resumable job directory behind.
func buildJobDir(t *testing.T, strategy config.QueueStrategy, urls []string) string {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Queue = strategy
	cfg.JobDir = t.TempDir()

	s := scheduler.New(cfg)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("failed to open scheduler: %v", err)
	}
	for _, u := range urls {
		if _, err := s.EnqueueRequest(context.Background(), request.NewRequest(u)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(context.Background(), "shutdown"); err != nil {
		t.Fatalf("failed to close scheduler: %v", err)
	}

	return cfg.JobDir
}

// TestInspect tests summaries of cleanly closed job directories.
func TestInspect(t *testing.T) {
	t.Parallel()

	t.Run("plain job directory", func(t *testing.T) {
		t.Parallel()

		jobDir := buildJobDir(t, config.StrategyPlain, []string{
			"http://example.com/a",
			"http://example.com/b",
		})

		s, err := Inspect(jobDir)
		if err != nil {
			t.Fatal(err)
		}

		if s.Strategy != StrategyPlain {
			t.Errorf("Strategy = %s, want plain", s.Strategy)
		}
		if s.PendingRequests != 2 {
			t.Errorf("PendingRequests = %d, want 2", s.PendingRequests)
		}
		if s.QueueFiles != 1 {
			t.Errorf("QueueFiles = %d, want 1", s.QueueFiles)
		}
		if s.SeenFingerprints != 2 {
			t.Errorf("SeenFingerprints = %d, want 2", s.SeenFingerprints)
		}
	})

	t.Run("slot job directory", func(t *testing.T) {
		t.Parallel()

		jobDir := buildJobDir(t, config.StrategySlotPartitioned, []string{
			"http://a.example/1",
			"http://b.example/1",
		})

		s, err := Inspect(jobDir)
		if err != nil {
			t.Fatal(err)
		}

		if s.Strategy != StrategySlot {
			t.Errorf("Strategy = %s, want slot", s.Strategy)
		}
		if got := s.SlotNames(); len(got) != 2 || got[0] != "a.example" || got[1] != "b.example" {
			t.Errorf("SlotNames() = %v, want [a.example b.example]", got)
		}
		if s.PendingRequests != 2 {
			t.Errorf("PendingRequests = %d, want 2", s.PendingRequests)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		if _, err := Inspect(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("inspecting a missing directory should fail")
		}
	})
}

// TestInspect_CrashedDirectory tests the sidecar-less fallback scan.
func TestInspect_CrashedDirectory(t *testing.T) {
	t.Parallel()

	jobDir := t.TempDir()
	queueDir := filepath.Join(jobDir, scheduler.QueueDirName)
	if err := os.MkdirAll(queueDir, 0750); err != nil {
		t.Fatal(err)
	}

	// Two length-prefixed records and a torn third, no sidecar: the
	// shape a crash leaves behind.
	var buf bytes.Buffer
	for _, payload := range []string{`{"url":"http://example.com/a"}`, `{"url":"http://example.com/b"}`} {
		var prefix [4]byte
		binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
		buf.Write(prefix[:])
		buf.WriteString(payload)
	}
	buf.Write([]byte{0, 0})
	if err := os.WriteFile(filepath.Join(queueDir, "0"), buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Inspect(jobDir)
	if err != nil {
		t.Fatal(err)
	}

	if s.Strategy != StrategyNone {
		t.Errorf("Strategy = %s, want none", s.Strategy)
	}
	if s.PendingRequests != 2 {
		t.Errorf("PendingRequests = %d, want 2", s.PendingRequests)
	}
}

// TestInspectAll tests concurrent inspection and input-order results.
func TestInspectAll(t *testing.T) {
	t.Parallel()

	first := buildJobDir(t, config.StrategyPlain, []string{"http://example.com/a"})
	second := buildJobDir(t, config.StrategyPlain, []string{"http://example.com/b", "http://example.com/c"})

	summaries, err := InspectAll(context.Background(), []string{first, second}, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].JobDir != first || summaries[1].JobDir != second {
		t.Error("summaries should come back in input order")
	}
	if summaries[0].PendingRequests != 1 || summaries[1].PendingRequests != 2 {
		t.Errorf("pending = %d/%d, want 1/2", summaries[0].PendingRequests, summaries[1].PendingRequests)
	}

	if _, err := InspectAll(context.Background(), []string{first, filepath.Join(t.TempDir(), "nope")}, 0); err == nil {
		t.Error("a missing directory should fail the whole batch")
	}
}

// TestWriters tests the text and markdown renderings.
func TestWriters(t *testing.T) {
	t.Parallel()

	jobDir := buildJobDir(t, config.StrategyPlain, []string{"http://example.com/a"})
	s, err := Inspect(jobDir)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := NewTextWriter(&buf).Write([]*Summary{s}); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, jobDir) || !strings.Contains(out, "pending requests: 1") {
			t.Errorf("unexpected text output:\n%s", out)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := NewMarkdownWriter(&buf).Write([]*Summary{s}); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "# Job Directory Report") {
			t.Errorf("missing title:\n%s", out)
		}
		if !strings.Contains(out, "Pending requests") {
			t.Errorf("missing summary table row:\n%s", out)
		}
	})
}
