package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/canopyproj/canopy/internal/model"
)

// MarkdownWriter outputs summaries as Markdown, suitable for sharing
// in issues and docs. Uses nao1215/markdown for fluent generation with
// GitHub-flavored alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary as Markdown.
func (w *MarkdownWriter) Write(summary *model.PullSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	w.writeFailed(md, summary)
	w.writeAlert(md, summary)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.PullSummary) {
	md.H1("Pull Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", "`" + summary.RootID + "`"},
			{"Status", statusText(summary)},
			{"Fetched this run", strconv.Itoa(summary.Fetched)},
			{"Duration", summary.Duration.Round(10 * time.Millisecond).String()},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, summary *model.PullSummary) {
	md.H2("Nodes by Status")
	md.PlainText("")

	rows := make([][]string, 0, len(statusOrder))
	total := 0
	for _, status := range statusOrder {
		count := summary.Counts[status]
		total += count
		if count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	rows = append(rows, []string{"**total**", "**" + strconv.Itoa(total) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailed(md *markdown.Markdown, summary *model.PullSummary) {
	if len(summary.Failed) == 0 {
		return
	}

	md.H2("Failed Nodes")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Failed))
	for _, id := range sortedFailedIDs(summary) {
		rows = append(rows, []string{"`" + id + "`", truncateString(summary.Failed[id], 80)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Node", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.PullSummary) {
	switch {
	case summary.Interrupted:
		md.Warning("The run was interrupted. Re-run the same command to resume.")
	case len(summary.Failed) > 0:
		md.Cautionf("%d node(s) failed. Retry them with `canopy pull --retry-failed`.", len(summary.Failed))
	case summary.FullySuccessful():
		md.Tip("Every reachable node was fetched successfully.")
	}
	md.PlainText("")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return strings.TrimSpace(s[:maxLen-3]) + "..."
}
