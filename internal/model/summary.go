package model

import "time"

// PullSummary reports the outcome of one crawl run. It is produced after
// the work queue drains and is the user-facing account of what was
// fetched, what failed, and whether the tree is complete.
type PullSummary struct {
	// RootID is the root entity of the crawl.
	RootID string `json:"root_id"`

	// RootStatus is the root node's final status. The run is fully
	// successful iff this is StatusSuccess.
	RootStatus NodeStatus `json:"root_status"`

	// Counts maps each node status to the number of nodes holding it at
	// the end of the run.
	Counts map[NodeStatus]int `json:"counts"`

	// Failed maps the ID of every failed node to its failure reason,
	// for targeted retry.
	Failed map[string]string `json:"failed,omitempty"`

	// Fetched is the number of fetches performed in this run. A resumed
	// run over an already-complete tree reports zero.
	Fetched int `json:"fetched"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`

	// Interrupted is true when the run stopped on a cancellation signal
	// rather than by draining the queue.
	Interrupted bool `json:"interrupted,omitempty"`
}

// FullySuccessful reports whether every reachable node was fetched and
// the completion invariant promoted the root to Success.
func (s *PullSummary) FullySuccessful() bool {
	return s.RootStatus == StatusSuccess
}
