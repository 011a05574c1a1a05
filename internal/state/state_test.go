package state

import (
	"testing"
	"time"

	"github.com/canopyproj/canopy/internal/model"
)

var testTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func refs(ids ...string) []model.ChildRef {
	out := make([]model.ChildRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.ChildRef{ID: id, Type: model.NodeTypeBlock})
	}
	return out
}

// TestMarkFetchedLeafPromotesImmediately tests that a childless node
// finalizes to Success on its own fetch.
func TestMarkFetchedLeafPromotesImmediately(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, nil, testTime)

	if got := ps.Nodes["root"].Status; got != model.StatusSuccess {
		t.Errorf("root status = %v, want success", got)
	}
}

// TestCompletionInvariant tests that a node is Success iff its own fetch
// succeeded and every descendant is Success, and that any failed
// descendant forces all ancestors to Partial.
func TestCompletionInvariant(t *testing.T) {
	t.Parallel()

	// root -> a -> b, root -> c
	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("a", "c"), testTime)

	if got := ps.Nodes["root"].Status; got != model.StatusInProgress {
		t.Fatalf("root must stay in_progress while children pending, got %v", got)
	}

	ps.MarkFetched("a", model.NodeTypeBlock, refs("b"), testTime)
	ps.MarkFetched("c", model.NodeTypeBlock, nil, testTime)

	if got := ps.Nodes["root"].Status; got != model.StatusInProgress {
		t.Fatalf("root must wait for grandchild b, got %v", got)
	}

	ps.MarkFailed("b", "fetch: not found", testTime)

	if got := ps.Nodes["a"].Status; got != model.StatusPartial {
		t.Errorf("a status = %v, want partial (failed child)", got)
	}
	if got := ps.Nodes["root"].Status; got != model.StatusPartial {
		t.Errorf("root status = %v, want partial (failed descendant)", got)
	}
	if got := ps.Nodes["c"].Status; got != model.StatusSuccess {
		t.Errorf("c status = %v, want success", got)
	}
}

// TestCompletionOrderIndependence tests that sibling completion order
// does not change the outcome.
func TestCompletionOrderIndependence(t *testing.T) {
	t.Parallel()

	build := func(order []string) *PullState {
		ps := New("root", model.NodeTypePage)
		ps.MarkFetched("root", model.NodeTypePage, refs("a", "b", "c"), testTime)
		for _, id := range order {
			ps.MarkFetched(id, model.NodeTypeBlock, nil, testTime)
		}
		return ps
	}

	for _, order := range [][]string{
		{"a", "b", "c"},
		{"c", "b", "a"},
		{"b", "c", "a"},
	} {
		ps := build(order)
		if got := ps.Nodes["root"].Status; got != model.StatusSuccess {
			t.Errorf("order %v: root = %v, want success", order, got)
		}
	}
}

// TestSharedChildReachesBothParents tests the DAG case: a node linked
// from two parents reports its final status to both.
func TestSharedChildReachesBothParents(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("p1", "p2"), testTime)
	ps.MarkFetched("p1", model.NodeTypePage, refs("shared"), testTime)
	ps.MarkFetched("p2", model.NodeTypePage, refs("shared"), testTime)

	ps.MarkFailed("shared", "fetch: rate limited", testTime)

	if got := ps.Nodes["p1"].Status; got != model.StatusPartial {
		t.Errorf("p1 = %v, want partial", got)
	}
	if got := ps.Nodes["p2"].Status; got != model.StatusPartial {
		t.Errorf("p2 = %v, want partial", got)
	}
	if got := ps.Nodes["root"].Status; got != model.StatusPartial {
		t.Errorf("root = %v, want partial", got)
	}
	if got := len(ps.Nodes["shared"].Parents); got != 2 {
		t.Errorf("shared has %d parents, want 2", got)
	}
}

// TestSelfReferenceTolerated tests that a node listing itself as a
// child cannot wedge its own completion check.
func TestSelfReferenceTolerated(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("root", "a"), testTime)
	ps.MarkFetched("a", model.NodeTypeBlock, nil, testTime)

	if got := ps.Nodes["root"].Status; got != model.StatusSuccess {
		t.Errorf("root = %v, want success despite self-reference", got)
	}
}

// TestSelectResumable tests the resume seed set: Pending plus Failed.
func TestSelectResumable(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("ok", "bad", "never"), testTime)
	ps.MarkFetched("ok", model.NodeTypeBlock, nil, testTime)
	ps.MarkFailed("bad", "fetch: server error", testTime)

	got := ps.SelectResumable()
	want := []string{"bad", "never"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("SelectResumable() = %v, want %v", got, want)
	}
}

// TestSelectFailed tests the retry-failed seed set: strictly Failed IDs.
func TestSelectFailed(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("ok", "bad", "never"), testTime)
	ps.MarkFetched("ok", model.NodeTypeBlock, nil, testTime)
	ps.MarkFailed("bad", "fetch: server error", testTime)

	got := ps.SelectFailed()
	if len(got) != 1 || got[0] != "bad" {
		t.Errorf("SelectFailed() = %v, want [bad]", got)
	}
}

// TestRebuildRevertsInProgress tests crash recovery: InProgress entries
// from a dead run are treated as Pending on resume.
func TestRebuildRevertsInProgress(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("a"), testTime)
	ps.MarkInProgress("a")

	ps.Rebuild()

	if got := ps.Nodes["a"].Status; got != model.StatusPending {
		t.Errorf("a = %v, want pending after rebuild", got)
	}
	resumable := ps.SelectResumable()
	if len(resumable) != 1 || resumable[0] != "a" {
		t.Errorf("SelectResumable() = %v, want [a]", resumable)
	}
}

// TestRecomputePromotesPartialAncestors tests that a successful retry
// of a failed leaf promotes its Partial ancestors to Success at the
// next fixed point.
func TestRecomputePromotesPartialAncestors(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("a"), testTime)
	ps.MarkFetched("a", model.NodeTypeBlock, refs("b"), testTime)
	ps.MarkFailed("b", "fetch: server error", testTime)

	if got := ps.Nodes["root"].Status; got != model.StatusPartial {
		t.Fatalf("root = %v, want partial before retry", got)
	}

	// Retry run: b is re-fetched and succeeds this time.
	ps.MarkPending("b")
	ps.Rebuild()
	ps.MarkFetched("b", model.NodeTypeBlock, nil, testTime)
	ps.Recompute(testTime)

	if got := ps.Nodes["a"].Status; got != model.StatusSuccess {
		t.Errorf("a = %v, want success after retry", got)
	}
	if got := ps.Nodes["root"].Status; got != model.StatusSuccess {
		t.Errorf("root = %v, want success after retry", got)
	}
	if got := ps.Status; got != model.StatusSuccess {
		t.Errorf("run status = %v, want success", got)
	}
}

// TestRecomputeNeverPromotesOverFailure tests that Recompute keeps the
// invariant: a Failed descendant blocks Success everywhere above it.
func TestRecomputeNeverPromotesOverFailure(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("a", "b"), testTime)
	ps.MarkFetched("a", model.NodeTypeBlock, nil, testTime)
	ps.MarkFailed("b", "fetch: unauthorized", testTime)
	ps.Recompute(testTime)

	if got := ps.Nodes["root"].Status; got != model.StatusPartial {
		t.Errorf("root = %v, want partial", got)
	}
	if got := ps.Nodes["b"].Status; got != model.StatusFailed {
		t.Errorf("b = %v, want failed (recompute must not touch it)", got)
	}
}

// TestRecomputeIdempotent tests that repeated recomputes are stable.
func TestRecomputeIdempotent(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("a"), testTime)
	ps.MarkFetched("a", model.NodeTypeBlock, nil, testTime)

	ps.Recompute(testTime)
	first := ps.Nodes["root"].Status
	ps.Recompute(testTime)
	second := ps.Nodes["root"].Status

	if first != second || first != model.StatusSuccess {
		t.Errorf("recompute unstable: %v then %v", first, second)
	}
}

// TestCountsAndFailedDetail tests the summary tallies.
func TestCountsAndFailedDetail(t *testing.T) {
	t.Parallel()

	ps := New("root", model.NodeTypePage)
	ps.MarkFetched("root", model.NodeTypePage, refs("a", "b"), testTime)
	ps.MarkFetched("a", model.NodeTypeBlock, nil, testTime)
	ps.MarkFailed("b", "fetch: not found", testTime)

	counts := ps.Counts()
	if counts[model.StatusSuccess] != 1 || counts[model.StatusFailed] != 1 || counts[model.StatusPartial] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	failed := ps.FailedDetail()
	if failed["b"] != "fetch: not found" {
		t.Errorf("FailedDetail() = %v, want reason for b", failed)
	}
}
