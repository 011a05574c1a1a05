package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/canopyproj/canopy/internal/model"
)

// SimpleWriter outputs human-readable text summaries for terminal
// display. Plain ASCII, no colors, so output pipes cleanly.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether zero-count statuses are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show zero-count statuses.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.PullSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeFailed(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.PullSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("PULL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Root:     %s\n", summary.RootID)
	fmt.Fprintf(sb, "Status:   %s\n", statusText(summary))
	fmt.Fprintf(sb, "Fetched:  %d node(s) this run\n", summary.Fetched)
	fmt.Fprintf(sb, "Duration: %s\n", summary.Duration.Round(10*time.Millisecond))
	sb.WriteString("\n")
}

// statusText renders the run status line.
func statusText(summary *model.PullSummary) string {
	switch {
	case summary.Interrupted:
		return "INTERRUPTED (resume with the same command)"
	case summary.FullySuccessful():
		return "complete"
	case summary.RootStatus == model.StatusPartial:
		return "partially complete (see failed nodes)"
	default:
		return string(summary.RootStatus)
	}
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *model.PullSummary) {
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("NODES BY STATUS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	total := 0
	for _, status := range statusOrder {
		count := summary.Counts[status]
		total += count
		if count == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-9s %d\n", strings.ToUpper(string(status))+":", count)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d node(s)\n", total)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailed(sb *strings.Builder, summary *model.PullSummary) {
	if len(summary.Failed) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("FAILED NODES\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	for _, id := range sortedFailedIDs(summary) {
		fmt.Fprintf(sb, "  [x] %s\n", id)
		fmt.Fprintf(sb, "      %s\n", summary.Failed[id])
	}
	sb.WriteString("\n")
	sb.WriteString("Retry failed nodes with: canopy pull --retry-failed\n")
}
