package inspect

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
)

// TextWriter outputs summaries as a compact human-readable listing.
type TextWriter struct {
	output io.Writer
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{output: output}
}

// Write outputs all summaries.
func (w *TextWriter) Write(summaries []*Summary) error {
	for i, s := range summaries {
		if i > 0 {
			if _, err := fmt.Fprintln(w.output); err != nil {
				return err
			}
		}
		if err := w.writeOne(s); err != nil {
			return err
		}
	}
	return nil
}

func (w *TextWriter) writeOne(s *Summary) error {
	lines := []string{
		s.JobDir,
		fmt.Sprintf("  strategy:         %s", s.Strategy),
		fmt.Sprintf("  pending requests: %d", s.PendingRequests),
		fmt.Sprintf("  queue files:      %d (%d bytes)", s.QueueFiles, s.QueueBytes),
		fmt.Sprintf("  duplicate filter: %s", filterText(s)),
	}

	switch s.Strategy {
	case StrategyPlain:
		lines = append(lines, fmt.Sprintf("  priority buckets: %s", bucketsText(s.Buckets)))
	case StrategySlot:
		for _, name := range s.SlotNames() {
			lines = append(lines, fmt.Sprintf("  slot %-20s %s", name+":", bucketsText(s.Slots[name])))
		}
	}

	_, err := fmt.Fprintln(w.output, strings.Join(lines, "\n"))
	return err
}

// MarkdownWriter outputs summaries as a Markdown document, for pasting
// into issues and crawl run logs.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs all summaries as one document.
func (w *MarkdownWriter) Write(summaries []*Summary) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Job Directory Report")
	md.PlainText("")

	for _, s := range summaries {
		w.writeOne(md, s)
	}

	return md.Build()
}

func (w *MarkdownWriter) writeOne(md *markdown.Markdown, s *Summary) {
	md.H2("`" + s.JobDir + "`")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Strategy", string(s.Strategy)},
			{"Pending requests", strconv.Itoa(s.PendingRequests)},
			{"Queue files", strconv.Itoa(s.QueueFiles)},
			{"Queue size", strconv.FormatInt(s.QueueBytes, 10) + " bytes"},
			{"Duplicate filter", filterText(s)},
		},
	})
	md.PlainText("")

	switch s.Strategy {
	case StrategyPlain:
		md.PlainText("Priority buckets: " + bucketsText(s.Buckets))
		md.PlainText("")
	case StrategySlot:
		rows := make([][]string, 0, len(s.Slots))
		for _, name := range s.SlotNames() {
			rows = append(rows, []string{name, bucketsText(s.Slots[name])})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Slot", "Priority buckets"},
			Rows:   rows,
		})
		md.PlainText("")
	case StrategyNone:
		md.Note("No queue state file: this directory is fresh, or its crawl was not cleanly closed. Pending counts for unclosed crawls include records the previous run already fetched.")
		md.PlainText("")
	case StrategyUnknown:
		md.Warning("The queue state file matches no known strategy; this directory may be corrupted.")
		md.PlainText("")
	}
}

// filterText describes the dedup artifacts found in the job directory.
func filterText(s *Summary) string {
	switch {
	case s.SQLiteFilter:
		return "sqlite"
	case s.SeenFingerprints >= 0:
		return fmt.Sprintf("memory (%d fingerprints)", s.SeenFingerprints)
	default:
		return "none"
	}
}

// bucketsText renders a priority key list.
func bucketsText(keys []int) string {
	if len(keys) == 0 {
		return "(none)"
	}
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = strconv.Itoa(key)
	}
	return strings.Join(parts, ", ")
}
