// Package crawler walks an entity tree breadth-first from a root,
// recording per-node progress in a persisted pull state.
//
// The crawl is resumable: every node transition lands in the state
// snapshot, checkpointed periodically and on every failure, so a
// crashed or cancelled run can continue where it stopped instead of
// re-fetching completed subtrees. Fetch I/O runs on a bounded worker
// pool; all state access is serialized under the queue lock.
package crawler
