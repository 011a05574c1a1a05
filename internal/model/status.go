package model

// NodeStatus is the crawl status of one entity node. It is the persisted
// unit of progress: a crash recovers by re-reading these statuses.
type NodeStatus string

const (
	// StatusPending means the node is known but has not been fetched.
	StatusPending NodeStatus = "pending"

	// StatusInProgress means a fetch is underway, or the node's own fetch
	// succeeded but descendants are still outstanding. InProgress found in
	// a loaded state file belongs to a crashed run and is treated as
	// Pending on resume.
	StatusInProgress NodeStatus = "in_progress"

	// StatusSuccess means the node's own fetch succeeded and every
	// descendant reachable from it is Success. This is the completion
	// invariant: Success is never assigned while any descendant is not
	// Success.
	StatusSuccess NodeStatus = "success"

	// StatusFailed means the node's own fetch failed after retries.
	StatusFailed NodeStatus = "failed"

	// StatusPartial means the node's own fetch succeeded but at least one
	// descendant is Failed or Partial. Distinct from Failed so downstream
	// stages can flatten the successful part of the subtree.
	StatusPartial NodeStatus = "partial"
)

// Terminal reports whether the status is final for the current run.
// Terminal nodes are not revisited without an explicit reset or retry.
func (s NodeStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusPartial:
		return true
	}
	return false
}

// Complete reports whether the node's own payload was fetched and stored.
// Partial nodes are complete in this sense; only their subtree is not.
func (s NodeStatus) Complete() bool {
	return s == StatusSuccess || s == StatusPartial
}
