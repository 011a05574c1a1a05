// Package state tracks and persists crawl progress for one entity tree.
//
// PullState maps every discovered node ID to its NodeState and is the
// durable source of truth for what has been fetched. Fetched payloads
// and flattened records are derived, recomputable data; the state file
// is not.
//
// The completion invariant enforced here: a node is Success only if its
// own fetch succeeded and every descendant reachable from it is Success.
// A node whose own fetch succeeded but whose subtree contains a failure
// is Partial, never Success, so re-running resumes correctly.
package state
