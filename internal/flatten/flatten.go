package flatten

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/canopyproj/canopy/internal/model"
	"github.com/canopyproj/canopy/internal/state"
	"github.com/canopyproj/canopy/internal/storage"
)

// ErrRootNotFetched is returned when the root entity's own fetch never
// completed, so there is nothing coherent to flatten.
var ErrRootNotFetched = errors.New("root entity not fetched")

// Flattener produces flat records from the raw payloads of one crawl.
type Flattener struct {
	store  *storage.RawStore
	ps     *state.PullState
	logger *slog.Logger
}

// Option configures a Flattener.
type Option func(*Flattener)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flattener) {
		f.logger = logger
	}
}

// New creates a Flattener over the given raw store and pull state.
func New(store *storage.RawStore, ps *state.PullState, opts ...Option) *Flattener {
	f := &Flattener{store: store, ps: ps}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Flatten walks the tree from the root in listing order and emits one
// record per completed indexable node. Failed subtrees are skipped and
// logged, never guessed at; a shared node reached through two parents
// is emitted once, at its first encounter. Output order is the
// deterministic pre-order of the tree.
func (f *Flattener) Flatten() ([]model.FlatRecord, error) {
	rootState, ok := f.ps.Nodes[f.ps.RootID]
	if !ok || !rootState.Status.Complete() {
		return nil, fmt.Errorf("root %s: %w", f.ps.RootID, ErrRootNotFetched)
	}

	records := make([]model.FlatRecord, 0)
	seen := make(map[string]bool)
	f.walk(f.ps.RootID, nil, seen, &records)
	return records, nil
}

// walk visits one node, emits its record when it is indexable, and
// descends to its children with the node's title appended to the
// ancestry path.
func (f *Flattener) walk(id string, path []string, seen map[string]bool, records *[]model.FlatRecord) {
	if seen[id] {
		return
	}
	seen[id] = true

	st, ok := f.ps.Nodes[id]
	if !ok || !st.Status.Complete() {
		f.logger.Warn("skipping incomplete node", "entity_id", id)
		return
	}

	node, err := f.store.Read(id, st.Type)
	if err != nil {
		f.logger.Warn("skipping unreadable node", "entity_id", id, "error", err)
		return
	}

	if node.Type.Indexable() {
		*records = append(*records, f.record(node, path))
	}

	childPath := path
	if node.Title != "" {
		childPath = append(append([]string(nil), path...), node.Title)
	}
	for _, child := range node.Children {
		f.walk(child.ID, childPath, seen, records)
	}
}

// record assembles the flat record for one indexable node.
func (f *Flattener) record(node *model.EntityNode, path []string) model.FlatRecord {
	rec := model.FlatRecord{
		SourceID:     node.ID,
		Type:         node.Type,
		Title:        normalize(node.Title),
		URL:          node.URL,
		AncestryPath: append([]string(nil), path...),
		TextContent:  f.textContent(node),
	}
	if len(node.Properties) > 0 {
		rec.PropertyBag = make(map[string]string, len(node.Properties))
		for name, value := range node.Properties {
			rec.PropertyBag[value.BagKey(name)] = normalize(value.PlainText())
		}
	}
	return rec
}

// textContent builds a node's searchable text: its title, its property
// values in stable key order, and the text of every block beneath it.
// The descent stops at indexable descendants, which own their text in
// their own records.
func (f *Flattener) textContent(node *model.EntityNode) string {
	parts := make([]string, 0, 4)
	if node.Title != "" {
		parts = append(parts, node.Title)
	}
	if node.Text != "" {
		parts = append(parts, node.Text)
	}

	if len(node.Properties) > 0 {
		keys := make([]string, 0, len(node.Properties))
		byKey := make(map[string]string, len(node.Properties))
		for name, value := range node.Properties {
			key := value.BagKey(name)
			keys = append(keys, key)
			byKey[key] = value.PlainText()
		}
		sort.Strings(keys)
		for _, key := range keys {
			if text := byKey[key]; text != "" {
				parts = append(parts, text)
			}
		}
	}

	visited := map[string]bool{node.ID: true}
	f.collectBlockText(node, visited, &parts)

	return normalize(strings.Join(parts, "\n\n"))
}

// collectBlockText appends the text of non-indexable descendants in
// listing order. The visited set tolerates reference cycles.
func (f *Flattener) collectBlockText(node *model.EntityNode, visited map[string]bool, parts *[]string) {
	for _, ref := range node.Children {
		if visited[ref.ID] {
			continue
		}
		visited[ref.ID] = true

		st, ok := f.ps.Nodes[ref.ID]
		if !ok || !st.Status.Complete() {
			continue
		}
		child, err := f.store.Read(ref.ID, st.Type)
		if err != nil {
			f.logger.Warn("skipping unreadable block", "entity_id", ref.ID, "error", err)
			continue
		}
		if child.Type.Indexable() {
			continue
		}
		if child.Text != "" {
			*parts = append(*parts, child.Text)
		}
		f.collectBlockText(child, visited, parts)
	}
}

// normalize applies NFC so visually identical text compares and hashes
// identically regardless of how the remote API composed it.
func normalize(s string) string {
	return norm.NFC.String(s)
}
