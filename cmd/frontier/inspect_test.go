package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestInspectCmd tests the inspect command against seeded directories.
func TestInspectCmd(t *testing.T) {
	t.Parallel()

	seedJobDir := func(t *testing.T, urls ...string) string {
		t.Helper()
		jobDir := filepath.Join(t.TempDir(), "job")
		args := append([]string{"seed", "--job-dir", jobDir}, urls...)
		if out, err := runCommand(t, args...); err != nil {
			t.Fatalf("seed failed: %v\n%s", err, out)
		}
		return jobDir
	}

	t.Run("plain text report", func(t *testing.T) {
		t.Parallel()

		jobDir := seedJobDir(t, "http://example.com/", "http://example.org/")
		out, err := runCommand(t, "inspect", jobDir)
		if err != nil {
			t.Fatalf("inspect failed: %v\n%s", err, out)
		}
		if !strings.Contains(out, "pending requests: 2") {
			t.Errorf("unexpected report:\n%s", out)
		}
		if !strings.Contains(out, "strategy:         plain") {
			t.Errorf("strategy missing from report:\n%s", out)
		}
	})

	t.Run("markdown report to file", func(t *testing.T) {
		t.Parallel()

		jobDir := seedJobDir(t, "http://example.com/")
		reportPath := filepath.Join(t.TempDir(), "reports", "job.md")

		out, err := runCommand(t, "inspect", "--markdown", "--output", reportPath, jobDir)
		if err != nil {
			t.Fatalf("inspect failed: %v\n%s", err, out)
		}

		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("report file missing: %v", err)
		}
		if !strings.Contains(string(data), "# Job Directory Report") {
			t.Errorf("unexpected markdown report:\n%s", data)
		}
	})

	t.Run("multiple directories", func(t *testing.T) {
		t.Parallel()

		first := seedJobDir(t, "http://example.com/")
		second := seedJobDir(t, "http://example.org/", "http://example.net/")

		out, err := runCommand(t, "inspect", "--concurrency", "2", first, second)
		if err != nil {
			t.Fatalf("inspect failed: %v\n%s", err, out)
		}
		if !strings.Contains(out, first) || !strings.Contains(out, second) {
			t.Errorf("both directories should appear:\n%s", out)
		}
	})

	t.Run("missing directory fails", func(t *testing.T) {
		t.Parallel()

		if _, err := runCommand(t, "inspect", filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("inspecting a missing directory should fail")
		}
	})

	t.Run("requires at least one argument", func(t *testing.T) {
		t.Parallel()

		if _, err := runCommand(t, "inspect"); err == nil {
			t.Error("inspect without arguments should fail")
		}
	})
}
