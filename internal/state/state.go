package state

import (
	"slices"
	"time"

	"github.com/canopyproj/canopy/internal/model"
)

// NodeState is the persisted crawl status of one entity node.
type NodeState struct {
	// Status is the node's crawl status.
	Status model.NodeStatus `json:"status"`

	// Reason holds the failure reason when Status is Failed.
	Reason string `json:"reason,omitempty"`

	// FetchedAt is set on the transition into a terminal status.
	FetchedAt time.Time `json:"fetched_at,omitzero"`

	// Type is retained so resumption can re-fetch the node without
	// re-deriving its kind from a parent.
	Type model.NodeType `json:"node_type,omitempty"`

	// Children lists direct child IDs, populated once the node's own
	// fetch succeeds.
	Children []string `json:"children,omitempty"`

	// ChildrenKnown distinguishes "fetched, zero children" from
	// "never fetched".
	ChildrenKnown bool `json:"children_known,omitempty"`

	// Parents lists every node that referenced this one as a child. A
	// shared sub-page has several; its final status must reach them all.
	Parents []string `json:"parents,omitempty"`

	// pending counts children that are not yet terminal. Maintained in
	// memory during a run; rebuilt from statuses on load.
	pending int
}

// PullState is the full persisted snapshot of one crawl. It is owned
// exclusively by the crawl run for one root entity.
//
// PullState is not safe for concurrent use. The crawler serializes all
// access under its queue lock; fetch I/O happens outside that lock.
type PullState struct {
	// RootID is the caller-supplied crawl root.
	RootID string `json:"root_id"`

	// RootType is the root entity's kind.
	RootType model.NodeType `json:"root_type"`

	// Status is the run-level status, mirroring the root node once the
	// crawl reaches a fixed point.
	Status model.NodeStatus `json:"status"`

	// StartedAt is when this state was first created.
	StartedAt time.Time `json:"started_at"`

	// UpdatedAt is bumped on every mutation.
	UpdatedAt time.Time `json:"updated_at"`

	// Nodes maps node ID to crawl status.
	Nodes map[string]*NodeState `json:"nodes"`
}

// New creates a fresh PullState with the root node Pending.
func New(rootID string, rootType model.NodeType) *PullState {
	now := time.Now().UTC()
	return &PullState{
		RootID:    rootID,
		RootType:  rootType,
		Status:    model.StatusPending,
		StartedAt: now,
		UpdatedAt: now,
		Nodes: map[string]*NodeState{
			rootID: {Status: model.StatusPending, Type: rootType},
		},
	}
}

// Node returns the state for id, creating a Pending entry if the node
// was never seen.
func (ps *PullState) Node(id string) *NodeState {
	n, ok := ps.Nodes[id]
	if !ok {
		n = &NodeState{Status: model.StatusPending}
		ps.Nodes[id] = n
	}
	return n
}

// MarkInProgress records that a fetch for id has been dispatched.
func (ps *PullState) MarkInProgress(id string) {
	n := ps.Node(id)
	n.Status = model.StatusInProgress
	ps.touch()
}

// MarkPending reverts id to Pending. Used when a dispatched fetch was
// abandoned by cancellation rather than failing: the node was untouched
// remotely and must not survive as InProgress in the state file.
func (ps *PullState) MarkPending(id string) {
	n := ps.Node(id)
	n.Status = model.StatusPending
	n.Reason = ""
	ps.touch()
}

// MarkFetched records a successful fetch of id's own payload and links
// the discovered children. The node becomes Success immediately when
// every child is already terminal-Success (or it has none); otherwise it
// stays InProgress until its pending-children counter drains.
//
// Newly discovered children are created Pending; children already known
// keep their status. Each child gains a back-link to id so a later
// terminal transition can decrement id's counter even when the child is
// shared with another parent.
func (ps *PullState) MarkFetched(id string, typ model.NodeType, children []model.ChildRef, now time.Time) {
	n := ps.Node(id)
	n.Type = typ
	n.Reason = ""
	n.FetchedAt = now
	n.Children = n.Children[:0]
	n.ChildrenKnown = true
	n.Status = model.StatusInProgress
	n.pending = 0

	for _, c := range children {
		// A node listing itself as a child would deadlock the counter.
		if c.ID == id {
			continue
		}
		n.Children = append(n.Children, c.ID)

		child := ps.Node(c.ID)
		if child.Type == "" {
			child.Type = c.Type
		}
		if !slices.Contains(child.Parents, id) {
			child.Parents = append(child.Parents, id)
		}
		if !child.Status.Terminal() {
			n.pending++
		}
	}

	if n.pending == 0 {
		ps.finalize(id, now)
	}
	ps.touch()
}

// MarkFailed records that id's own fetch failed after retries. Children
// stay unknown; ancestors are notified so none of them can ever be
// promoted to Success.
func (ps *PullState) MarkFailed(id, reason string, now time.Time) {
	n := ps.Node(id)
	n.Status = model.StatusFailed
	n.Reason = reason
	n.FetchedAt = now
	ps.notifyParents(id, now)
	ps.touch()
}

// finalize assigns id its terminal status from its children's statuses
// and cascades the transition to its parents. Callers ensure every
// child is terminal (pending == 0).
func (ps *PullState) finalize(id string, now time.Time) {
	n := ps.Nodes[id]
	status := model.StatusSuccess
	for _, childID := range n.Children {
		if ps.Nodes[childID].Status != model.StatusSuccess {
			status = model.StatusPartial
			break
		}
	}
	n.Status = status
	if n.FetchedAt.IsZero() {
		n.FetchedAt = now
	}
	ps.notifyParents(id, now)
}

// notifyParents decrements the pending-children counter of every parent
// awaiting id and finalizes any parent whose counter reaches zero. The
// counter makes completion checks order-independent: each child terminal
// transition triggers its parent's check exactly once, regardless of the
// order siblings finish in.
func (ps *PullState) notifyParents(id string, now time.Time) {
	for _, parentID := range ps.Nodes[id].Parents {
		p, ok := ps.Nodes[parentID]
		if !ok || !p.ChildrenKnown || p.Status.Terminal() {
			continue
		}
		if p.pending > 0 {
			p.pending--
		}
		if p.pending == 0 {
			ps.finalize(parentID, now)
		}
	}
}

// SelectResumable returns every node that a resumed crawl must visit:
// Pending nodes (never attempted, or reverted from a crashed run) and
// Failed nodes. The root is included when the state is fresh.
func (ps *PullState) SelectResumable() []string {
	ids := make([]string, 0)
	for id, n := range ps.Nodes {
		if n.Status == model.StatusPending || n.Status == model.StatusFailed {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// SelectFailed returns only the nodes whose own fetch failed. This is
// the retry-failed seed set: strictly Failed IDs, not Pending ones.
// Resuming never-attempted subtrees is the business of a plain resume.
func (ps *PullState) SelectFailed() []string {
	ids := make([]string, 0)
	for id, n := range ps.Nodes {
		if n.Status == model.StatusFailed {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Rebuild prepares a loaded state for a new run. InProgress entries
// belong to a crashed run whose work never finished; they revert to
// Pending and will be re-fetched. Pending counters are rebuilt from
// persisted statuses.
func (ps *PullState) Rebuild() {
	for _, n := range ps.Nodes {
		if n.Status == model.StatusInProgress {
			n.Status = model.StatusPending
			n.ChildrenKnown = false
			n.Children = nil
		}
	}
	ps.rebuildCounters()
	ps.touch()
}

// rebuildCounters recomputes every fetched node's pending count from
// the current child statuses.
func (ps *PullState) rebuildCounters() {
	for _, n := range ps.Nodes {
		if !n.ChildrenKnown {
			n.pending = 0
			continue
		}
		pending := 0
		for _, childID := range n.Children {
			if c, ok := ps.Nodes[childID]; !ok || !c.Status.Terminal() {
				pending++
			}
		}
		n.pending = pending
	}
}

// Recompute re-derives the terminal status of every fetched node from
// its subtree, bottom-up. It is idempotent and order-independent, and
// exists for the fixed point after a queue drain: a retry run that
// turned a Failed leaf into Success must promote Partial ancestors that
// finalized in an earlier run.
func (ps *PullState) Recompute(now time.Time) {
	memo := make(map[string]model.NodeStatus, len(ps.Nodes))
	for id := range ps.Nodes {
		ps.computeStatus(id, memo, make(map[string]bool))
	}
	for id, status := range memo {
		n := ps.Nodes[id]
		if status.Terminal() && n.Status != status {
			n.Status = status
			if n.FetchedAt.IsZero() {
				n.FetchedAt = now
			}
		}
	}
	ps.rebuildCounters()
	if root, ok := ps.Nodes[ps.RootID]; ok {
		ps.Status = root.Status
	}
	ps.touch()
}

// computeStatus resolves a node's status from its subtree. The visiting
// set breaks reference cycles: a node reached through itself counts as
// Success so a cycle alone cannot poison an otherwise complete subtree.
func (ps *PullState) computeStatus(id string, memo map[string]model.NodeStatus, visiting map[string]bool) model.NodeStatus {
	if s, ok := memo[id]; ok {
		return s
	}
	if visiting[id] {
		return model.StatusSuccess
	}

	n, ok := ps.Nodes[id]
	if !ok {
		return model.StatusFailed
	}
	if !n.Status.Complete() && n.Status.Terminal() {
		memo[id] = n.Status
		return n.Status
	}
	if !n.ChildrenKnown {
		// Not terminal and not fetched: nothing to derive.
		if n.Status.Terminal() {
			memo[id] = n.Status
		}
		return n.Status
	}

	visiting[id] = true
	status := model.StatusSuccess
	for _, childID := range n.Children {
		child := ps.computeStatus(childID, memo, visiting)
		if child != model.StatusSuccess {
			status = model.StatusPartial
		}
	}
	delete(visiting, id)

	memo[id] = status
	return status
}

// Counts tallies nodes per status.
func (ps *PullState) Counts() map[model.NodeStatus]int {
	counts := make(map[model.NodeStatus]int)
	for _, n := range ps.Nodes {
		counts[n.Status]++
	}
	return counts
}

// FailedDetail maps every Failed node ID to its recorded reason.
func (ps *PullState) FailedDetail() map[string]string {
	failed := make(map[string]string)
	for id, n := range ps.Nodes {
		if n.Status == model.StatusFailed {
			failed[id] = n.Reason
		}
	}
	return failed
}

// RootStatus returns the root node's current status.
func (ps *PullState) RootStatus() model.NodeStatus {
	if root, ok := ps.Nodes[ps.RootID]; ok {
		return root.Status
	}
	return model.StatusPending
}

func (ps *PullState) touch() {
	ps.UpdatedAt = time.Now().UTC()
}
