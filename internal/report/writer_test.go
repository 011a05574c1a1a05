package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/canopyproj/canopy/internal/model"
)

func sampleSummary() *model.PullSummary {
	return &model.PullSummary{
		RootID:     "11111111-2222-3333-4444-555555555555",
		RootStatus: model.StatusPartial,
		Counts: map[model.NodeStatus]int{
			model.StatusSuccess: 12,
			model.StatusPartial: 2,
			model.StatusFailed:  1,
		},
		Failed: map[string]string{
			"deadbeef": "retries exhausted after 4 attempts: fetch server_error (status 503)",
		},
		Fetched:  15,
		Duration: 42 * time.Second,
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewSimpleWriter(&buf).Write(sampleSummary())
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"PULL SUMMARY",
		"11111111-2222-3333-4444-555555555555",
		"partially complete",
		"SUCCESS:  12",
		"FAILED:   1",
		"TOTAL:    15",
		"deadbeef",
		"--retry-failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimpleWriterHidesEmptyStatuses(t *testing.T) {
	t.Parallel()

	summary := sampleSummary()
	summary.Failed = nil

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).Write(summary); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "PENDING") {
		t.Error("zero-count status shown without WithShowEmpty")
	}
	if strings.Contains(buf.String(), "FAILED NODES") {
		t.Error("failed section shown with no failures")
	}

	buf.Reset()
	if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(summary); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "PENDING") {
		t.Error("WithShowEmpty did not show zero-count statuses")
	}
}

func TestJSONWriterRoundTrips(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleSummary()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	var decoded model.PullSummary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RootStatus != model.StatusPartial || decoded.Fetched != 15 {
		t.Errorf("decoded = %+v", decoded)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("missing trailing newline")
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleSummary()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Pull Summary",
		"## Nodes by Status",
		"## Failed Nodes",
		"`deadbeef`",
		"CAUTION",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriterSuccessTip(t *testing.T) {
	t.Parallel()

	summary := sampleSummary()
	summary.RootStatus = model.StatusSuccess
	summary.Failed = nil

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(summary); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "TIP") {
		t.Errorf("success summary missing tip alert:\n%s", buf.String())
	}
}

// failingWriter always errors, to exercise MultiWriter's stop-on-error.
type failingWriter struct{}

func (failingWriter) Write(*model.PullSummary) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))

	total, err := mw.Write(sampleSummary())
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if total != a.Len()+b.Len() {
		t.Errorf("total = %d, want %d", total, a.Len()+b.Len())
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Error("one destination got no output")
	}

	mw = NewMultiWriter(failingWriter{}, NewSimpleWriter(&a))
	if _, err := mw.Write(sampleSummary()); err == nil {
		t.Error("expected error from failing writer")
	}
}
