package report

import (
	"io"
	"sort"

	"github.com/canopyproj/canopy/internal/model"
)

// Writer renders one pull summary to a configured destination.
//
// Implementations write summaries, not raw bytes, so files, stdout,
// and network destinations all share the same API.
type Writer interface {
	// Write outputs the summary. Returns the number of bytes written
	// and any error encountered.
	Write(summary *model.PullSummary) (int, error)
}

// MultiWriter writes to multiple Writers, typically terminal plus a
// file. It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers. Returns the
// total bytes written across all of them.
func (m *MultiWriter) Write(summary *model.PullSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides the shared output destination.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// sortedFailedIDs returns the failed node IDs in stable order so report
// output is deterministic.
func sortedFailedIDs(summary *model.PullSummary) []string {
	ids := make([]string, 0, len(summary.Failed))
	for id := range summary.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// statusOrder is the display order for node status counts.
var statusOrder = []model.NodeStatus{
	model.StatusSuccess,
	model.StatusPartial,
	model.StatusFailed,
	model.StatusPending,
	model.StatusInProgress,
}
