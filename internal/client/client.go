package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/canopyproj/canopy/internal/model"
)

// Request identifies one entity fetch. Cursor continues a paginated
// child listing and is empty for the first call.
type Request struct {
	ID     string
	Type   model.NodeType
	Cursor string
}

// Response is one page of an entity fetch. HasMore signals that more
// children exist beyond NextCursor.
type Response struct {
	Node       *model.EntityNode
	HasMore    bool
	NextCursor string
}

// RemoteAPI is the transport-level collaborator performing one call
// with no rate limiting or retry of its own.
type RemoteAPI interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// Clock abstracts time so the retry schedule can be tested without
// real sleeps. Sleep returns early with the context error when the
// context is cancelled.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observer receives the outcome of every call attempt, success or
// failure, for operational visibility.
type Observer interface {
	ObserveFetch(outcome string, elapsed time.Duration)
}

// Client wraps a RemoteAPI with bounded concurrency, pacing, and retry.
// It is safe for concurrent use.
type Client struct {
	api      RemoteAPI
	sem      *semaphore.Weighted
	clock    Clock
	observer Observer
	logger   *slog.Logger

	delay         time.Duration
	maxRetries    int
	baseDelay     time.Duration
	backoffFactor float64

	// paceMu serializes pacing slot reservation between call starts.
	paceMu    sync.Mutex
	nextStart time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithMaxConcurrent bounds in-flight calls. Default 5.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithPacing sets the minimum spacing between call starts. Applied even
// when the concurrency bound would allow more, to avoid bursts the
// remote API does not reject immediately but still counts against us.
func WithPacing(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// WithRetry sets the retry schedule for transient failures: up to
// maxRetries retries after the initial attempt, waiting
// base * factor^attempt before retry number attempt+1.
func WithRetry(maxRetries int, base time.Duration, factor float64) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = base
		c.backoffFactor = factor
	}
}

// WithClock injects a clock. Tests use this to observe the backoff
// schedule without sleeping.
func WithClock(clock Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithObserver sets the per-attempt outcome hook.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client wrapping the given RemoteAPI.
func New(api RemoteAPI, opts ...Option) *Client {
	c := &Client{
		api:           api,
		sem:           semaphore.NewWeighted(5),
		clock:         realClock{},
		delay:         time.Second,
		maxRetries:    3,
		baseDelay:     time.Second,
		backoffFactor: 2.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Fetch performs one request under the concurrency bound, pacing every
// attempt and retrying transient failures with exponential backoff.
//
// Non-transient failures (unauthorized, not found) return immediately.
// Transient failures retry up to the configured budget; the final error
// wraps the last FetchError so callers can classify it with errors.As.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	for attempt := 0; ; attempt++ {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		start := c.clock.Now()
		resp, err := c.api.Fetch(ctx, req)
		elapsed := c.clock.Now().Sub(start)

		if err == nil {
			c.observe("success", elapsed)
			c.logger.Debug("fetch succeeded",
				"entity_id", req.ID,
				"attempt", attempt+1,
				"elapsed", elapsed,
			)
			return resp, nil
		}

		fe := asFetchError(err)
		c.observe(string(fe.Kind), elapsed)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !fe.Transient() {
			c.logger.Error("fetch failed permanently",
				"entity_id", req.ID,
				"kind", fe.Kind,
				"error", err,
			)
			return nil, err
		}
		if attempt == c.maxRetries {
			c.logger.Error("fetch retries exhausted",
				"entity_id", req.ID,
				"attempts", attempt+1,
				"error", err,
			)
			return nil, fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, err)
		}

		wait := c.backoffDelay(attempt)
		if fe.RetryAfter > 0 {
			wait = fe.RetryAfter
		}
		c.logger.Warn("fetch failed, retrying",
			"entity_id", req.ID,
			"attempt", attempt+1,
			"kind", fe.Kind,
			"wait", wait,
		)
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// FetchNode fetches an entity and follows its child-listing cursors
// until the listing is exhausted, returning the node with the merged
// child sequence. This satisfies the crawler's fetch capability.
func (c *Client) FetchNode(ctx context.Context, id string, typ model.NodeType) (*model.EntityNode, error) {
	req := Request{ID: id, Type: typ}

	var node *model.EntityNode
	for {
		resp, err := c.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		if node == nil {
			node = resp.Node
		} else {
			node.Children = append(node.Children, resp.Node.Children...)
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return node, nil
		}
		req.Cursor = resp.NextCursor
	}
}

// pace reserves the next call-start slot. The slot is claimed before
// sleeping so concurrent callers space out instead of herding.
func (c *Client) pace(ctx context.Context) error {
	c.paceMu.Lock()
	now := c.clock.Now()
	var wait time.Duration
	if c.nextStart.After(now) {
		wait = c.nextStart.Sub(now)
		c.nextStart = c.nextStart.Add(c.delay)
	} else {
		c.nextStart = now.Add(c.delay)
	}
	c.paceMu.Unlock()

	if wait > 0 {
		return c.clock.Sleep(ctx, wait)
	}
	return nil
}

// backoffDelay computes the wait before retry number attempt+1.
func (c *Client) backoffDelay(attempt int) time.Duration {
	return time.Duration(float64(c.baseDelay) * math.Pow(c.backoffFactor, float64(attempt)))
}

func (c *Client) observe(outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveFetch(outcome, elapsed)
	}
}

// asFetchError normalizes any error into a FetchError. Unknown errors
// count as transport failures, which are transient.
func asFetchError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Kind: KindTransport, Err: err}
}
