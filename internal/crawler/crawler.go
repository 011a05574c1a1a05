package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/canopyproj/canopy/internal/model"
	"github.com/canopyproj/canopy/internal/state"
)

// Fetcher retrieves one entity node with its full child listing. The
// implementation owns rate limiting and retry; the crawler treats a
// returned error as final for this run.
type Fetcher interface {
	FetchNode(ctx context.Context, id string, typ model.NodeType) (*model.EntityNode, error)
}

// Writer persists a fetched node payload.
type Writer interface {
	Write(node *model.EntityNode) error
}

// Checkpointer persists pull state snapshots during and after a run.
type Checkpointer interface {
	Save(ps *state.PullState) error
}

// Mode selects which nodes seed a run.
type Mode int

const (
	// ModeResume seeds everything unfinished: Pending nodes and Failed
	// nodes alike.
	ModeResume Mode = iota

	// ModeRetryFailed seeds only nodes whose own fetch failed, leaving
	// never-attempted subtrees untouched.
	ModeRetryFailed
)

// Crawler drives one tree crawl over an injected Fetcher, Writer, and
// Checkpointer.
type Crawler struct {
	// fetcher retrieves entity nodes.
	fetcher Fetcher

	// writer persists fetched payloads.
	writer Writer

	// store checkpoints pull state.
	store Checkpointer

	// workers is the number of concurrent fetch workers.
	workers int

	// checkpointEvery is the number of node transitions between state
	// checkpoints. 1 checkpoints after every transition.
	checkpointEvery int

	// logger receives per-node progress events.
	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWorkers sets the number of concurrent fetch workers. Default 5.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithCheckpointInterval sets how many node transitions pass between
// state checkpoints. Failures always checkpoint immediately. Default 1.
func WithCheckpointInterval(k int) Option {
	return func(c *Crawler) {
		if k > 0 {
			c.checkpointEvery = k
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler.
func New(fetcher Fetcher, writer Writer, store Checkpointer, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:         fetcher,
		writer:          writer,
		store:           store,
		workers:         5,
		checkpointEvery: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run crawls until the work queue drains or the context is cancelled,
// then recomputes subtree statuses, saves the final state, and returns
// a summary of the run.
//
// Cancellation is not an error: in-flight nodes revert to Pending,
// queued nodes stay Pending, the state is saved, and the summary
// reports Interrupted. The returned error is reserved for failures to
// persist state, which would silently lose progress.
func (c *Crawler) Run(ctx context.Context, ps *state.PullState, mode Mode) (*model.PullSummary, error) {
	start := time.Now()

	// A crashed run may have left InProgress entries; they revert to
	// Pending before seed selection so they are re-fetched.
	ps.Rebuild()

	var seeds []string
	switch mode {
	case ModeRetryFailed:
		seeds = ps.SelectFailed()
	default:
		seeds = ps.SelectResumable()
	}
	for _, id := range seeds {
		ps.MarkPending(id)
	}

	r := &run{
		c:      c,
		ps:     ps,
		queued: make(map[string]bool, len(seeds)),
	}
	r.cond = sync.NewCond(&r.mu)
	for _, id := range seeds {
		r.enqueueLocked(id, ps.Node(id).Type)
	}

	c.logger.Info("crawl starting",
		"root_id", ps.RootID,
		"seeds", len(seeds),
		"workers", c.workers,
	)

	// The watcher turns context cancellation into a queue wakeup so
	// workers blocked in cond.Wait observe it.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.cancelled = true
			r.cond.Broadcast()
			r.mu.Unlock()
		case <-watchDone:
		}
	}()

	g := new(errgroup.Group)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			r.work(ctx)
			return nil
		})
	}
	_ = g.Wait()
	close(watchDone)

	interrupted := ctx.Err() != nil
	ps.Recompute(time.Now().UTC())
	if err := c.store.Save(ps); err != nil {
		return nil, fmt.Errorf("save final state: %w", err)
	}

	summary := &model.PullSummary{
		RootID:      ps.RootID,
		RootStatus:  ps.RootStatus(),
		Counts:      ps.Counts(),
		Failed:      ps.FailedDetail(),
		Fetched:     r.fetched,
		Duration:    time.Since(start),
		Interrupted: interrupted,
	}
	c.logger.Info("crawl finished",
		"root_id", ps.RootID,
		"root_status", summary.RootStatus,
		"fetched", summary.Fetched,
		"failed", len(summary.Failed),
		"interrupted", summary.Interrupted,
	)
	return summary, nil
}

// workItem is one node awaiting fetch.
type workItem struct {
	id  string
	typ model.NodeType
}

// run is the mutable state of one crawl. All fields below mu are
// guarded by it; fetch I/O happens with the lock released.
type run struct {
	c  *Crawler
	ps *state.PullState

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []workItem
	queued    map[string]bool
	inflight  int
	cancelled bool
	fetched   int
	sinceSave int
}

// work pulls items until the queue drains or the run is cancelled.
func (r *run) work(ctx context.Context) {
	for {
		item, ok := r.next()
		if !ok {
			return
		}
		r.process(ctx, item)
	}
}

// next blocks until an item is available, the crawl is complete (empty
// queue, nothing in flight), or the run is cancelled.
func (r *run) next() (workItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if r.cancelled {
			return workItem{}, false
		}
		if len(r.queue) > 0 {
			item := r.queue[0]
			r.queue = r.queue[1:]
			r.inflight++
			return item, true
		}
		if r.inflight == 0 {
			// Drained. Wake the other waiters so they exit too.
			r.cond.Broadcast()
			return workItem{}, false
		}
		r.cond.Wait()
	}
}

// process fetches one node and applies the resulting state transition.
func (r *run) process(ctx context.Context, item workItem) {
	r.mu.Lock()
	r.ps.MarkInProgress(item.id)
	r.mu.Unlock()

	node, err := r.c.fetcher.FetchNode(ctx, item.id, item.typ)
	if err == nil {
		if werr := r.c.writer.Write(node); werr != nil {
			err = fmt.Errorf("store payload: %w", werr)
		}
	}

	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.finishOne()

	switch {
	case err != nil && ctx.Err() != nil:
		// Abandoned by cancellation, not failed: revert so the next run
		// fetches it again.
		r.ps.MarkPending(item.id)
	case err != nil:
		r.c.logger.Error("node fetch failed",
			"entity_id", item.id,
			"error", err,
		)
		r.ps.MarkFailed(item.id, err.Error(), now)
		r.checkpointLocked(true)
	default:
		r.fetched++
		r.ps.MarkFetched(item.id, node.Type, node.Children, now)
		r.c.logger.Debug("node fetched",
			"entity_id", item.id,
			"node_type", node.Type,
			"children", len(node.Children),
		)
		for _, child := range node.Children {
			if child.ID == item.id || r.queued[child.ID] {
				continue
			}
			if r.ps.Node(child.ID).Status.Terminal() {
				continue
			}
			r.enqueueLocked(child.ID, child.Type)
		}
		r.checkpointLocked(false)
	}
}

// enqueueLocked appends an item and wakes one waiting worker. Callers
// hold r.mu.
func (r *run) enqueueLocked(id string, typ model.NodeType) {
	r.queue = append(r.queue, workItem{id: id, typ: typ})
	r.queued[id] = true
	r.cond.Signal()
}

// finishOne retires an in-flight item and wakes everyone when the crawl
// has reached its fixed point. Callers hold r.mu.
func (r *run) finishOne() {
	r.inflight--
	if r.inflight == 0 && len(r.queue) == 0 {
		r.cond.Broadcast()
	}
}

// checkpointLocked saves state every checkpointEvery transitions, or
// immediately when force is set. A failed checkpoint is logged and the
// crawl continues; the final save at drain reports errors properly.
// Callers hold r.mu.
func (r *run) checkpointLocked(force bool) {
	r.sinceSave++
	if !force && r.sinceSave < r.c.checkpointEvery {
		return
	}
	r.sinceSave = 0
	if err := r.c.store.Save(r.ps); err != nil {
		r.c.logger.Warn("checkpoint failed", "error", err)
	}
}
