package flatten

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/canopyproj/canopy/internal/model"
	"github.com/canopyproj/canopy/internal/state"
	"github.com/canopyproj/canopy/internal/storage"
)

var testTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// fixture builds a raw store and pull state containing the given
// fetched nodes, in order.
func fixture(t *testing.T, rootID string, rootType model.NodeType, nodes ...*model.EntityNode) (*storage.RawStore, *state.PullState) {
	t.Helper()

	store := storage.NewRawStore(storage.NewLayout(t.TempDir(), rootID), nil)
	ps := state.New(rootID, rootType)
	for _, n := range nodes {
		if err := store.Write(n); err != nil {
			t.Fatal(err)
		}
		ps.MarkFetched(n.ID, n.Type, n.Children, testTime)
	}
	ps.Recompute(testTime)
	return store, ps
}

func TestFlattenFoldsBlockTextIntoPage(t *testing.T) {
	t.Parallel()

	root := &model.EntityNode{
		ID:    "root",
		Type:  model.NodeTypePage,
		Title: "Roadmap",
		URL:   "https://example.test/root",
		Children: []model.ChildRef{
			{ID: "b1", Type: model.NodeTypeBlock},
			{ID: "sub", Type: model.NodeTypePage},
		},
	}
	b1 := &model.EntityNode{
		ID:   "b1",
		Type: model.NodeTypeBlock,
		Text: "First paragraph.",
		Children: []model.ChildRef{
			{ID: "b2", Type: model.NodeTypeBlock},
		},
	}
	b2 := &model.EntityNode{ID: "b2", Type: model.NodeTypeBlock, Text: "Nested detail."}
	sub := &model.EntityNode{ID: "sub", Type: model.NodeTypePage, Title: "Milestones"}

	store, ps := fixture(t, "root", model.NodeTypePage, root, b1, b2, sub)

	records, err := New(store, ps).Flatten()
	if err != nil {
		t.Fatalf("Flatten() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	page := records[0]
	if page.SourceID != "root" {
		t.Errorf("first record = %s, want root (pre-order)", page.SourceID)
	}
	for _, want := range []string{"Roadmap", "First paragraph.", "Nested detail."} {
		if !strings.Contains(page.TextContent, want) {
			t.Errorf("page text missing %q:\n%s", want, page.TextContent)
		}
	}
	if strings.Contains(page.TextContent, "Milestones") {
		t.Error("sub-page text leaked into parent record")
	}

	child := records[1]
	if child.SourceID != "sub" {
		t.Errorf("second record = %s, want sub", child.SourceID)
	}
	if len(child.AncestryPath) != 1 || child.AncestryPath[0] != "Roadmap" {
		t.Errorf("ancestry = %v, want [Roadmap]", child.AncestryPath)
	}
}

func TestFlattenDatabaseRows(t *testing.T) {
	t.Parallel()

	status := model.PropertyValue{Type: model.PropertySelect, Select: "active"}
	root := &model.EntityNode{
		ID:    "root",
		Type:  model.NodeTypePage,
		Title: "Home",
		Children: []model.ChildRef{
			{ID: "db", Type: model.NodeTypeDatabase},
		},
	}
	db := &model.EntityNode{
		ID:    "db",
		Type:  model.NodeTypeDatabase,
		Title: "Tasks",
		Children: []model.ChildRef{
			{ID: "row1", Type: model.NodeTypeDatabaseRow},
		},
	}
	row := &model.EntityNode{
		ID:    "row1",
		Type:  model.NodeTypeDatabaseRow,
		Title: "Ship it",
		Properties: map[string]model.PropertyValue{
			"Status": status,
		},
	}

	store, ps := fixture(t, "root", model.NodeTypePage, root, db, row)

	records, err := New(store, ps).Flatten()
	if err != nil {
		t.Fatalf("Flatten() error: %v", err)
	}

	var rowRec *model.FlatRecord
	for i := range records {
		if records[i].SourceID == "row1" {
			rowRec = &records[i]
		}
	}
	if rowRec == nil {
		t.Fatalf("no record for database row; records = %+v", records)
	}
	if got := rowRec.PropertyBag["select_status"]; got != "active" {
		t.Errorf("property bag select_status = %q, want active", got)
	}
	if len(rowRec.AncestryPath) != 2 || rowRec.AncestryPath[0] != "Home" || rowRec.AncestryPath[1] != "Tasks" {
		t.Errorf("ancestry = %v, want [Home Tasks]", rowRec.AncestryPath)
	}
	if !strings.Contains(rowRec.TextContent, "active") {
		t.Errorf("row text missing property value:\n%s", rowRec.TextContent)
	}
}

func TestFlattenSkipsFailedSubtree(t *testing.T) {
	t.Parallel()

	root := &model.EntityNode{
		ID:    "root",
		Type:  model.NodeTypePage,
		Title: "Home",
		Children: []model.ChildRef{
			{ID: "ok", Type: model.NodeTypePage},
			{ID: "broken", Type: model.NodeTypePage},
		},
	}
	ok := &model.EntityNode{ID: "ok", Type: model.NodeTypePage, Title: "Fine"}

	store, ps := fixture(t, "root", model.NodeTypePage, root, ok)
	ps.MarkFailed("broken", "server busy", testTime)

	records, err := New(store, ps).Flatten()
	if err != nil {
		t.Fatalf("Flatten() error: %v", err)
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.SourceID)
	}
	if len(ids) != 2 || ids[0] != "root" || ids[1] != "ok" {
		t.Errorf("records = %v, want [root ok]", ids)
	}
}

func TestFlattenRootNotFetched(t *testing.T) {
	t.Parallel()

	store := storage.NewRawStore(storage.NewLayout(t.TempDir(), "root"), nil)
	ps := state.New("root", model.NodeTypePage)
	ps.MarkFailed("root", "unauthorized", testTime)

	if _, err := New(store, ps).Flatten(); !errors.Is(err, ErrRootNotFetched) {
		t.Errorf("expected ErrRootNotFetched, got %v", err)
	}
}

func TestFlattenNormalizesText(t *testing.T) {
	t.Parallel()

	// "é" in decomposed form: 'e' followed by a combining acute.
	root := &model.EntityNode{
		ID:    "root",
		Type:  model.NodeTypePage,
		Title: "Cafe\u0301",
	}

	store, ps := fixture(t, "root", model.NodeTypePage, root)

	records, err := New(store, ps).Flatten()
	if err != nil {
		t.Fatalf("Flatten() error: %v", err)
	}
	if records[0].Title != "Caf\u00e9" {
		t.Errorf("title = %q, want composed form", records[0].Title)
	}
	if !strings.Contains(records[0].TextContent, "Caf\u00e9") {
		t.Errorf("text = %q, want composed form", records[0].TextContent)
	}
}

func TestFlattenSharedNodeEmittedOnce(t *testing.T) {
	t.Parallel()

	root := &model.EntityNode{
		ID:    "root",
		Type:  model.NodeTypePage,
		Title: "Home",
		Children: []model.ChildRef{
			{ID: "a", Type: model.NodeTypePage},
			{ID: "b", Type: model.NodeTypePage},
		},
	}
	a := &model.EntityNode{
		ID: "a", Type: model.NodeTypePage, Title: "A",
		Children: []model.ChildRef{{ID: "shared", Type: model.NodeTypePage}},
	}
	b := &model.EntityNode{
		ID: "b", Type: model.NodeTypePage, Title: "B",
		Children: []model.ChildRef{{ID: "shared", Type: model.NodeTypePage}},
	}
	shared := &model.EntityNode{ID: "shared", Type: model.NodeTypePage, Title: "Shared"}

	store, ps := fixture(t, "root", model.NodeTypePage, root, a, b, shared)

	records, err := New(store, ps).Flatten()
	if err != nil {
		t.Fatalf("Flatten() error: %v", err)
	}

	count := 0
	for _, r := range records {
		if r.SourceID == "shared" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("shared node emitted %d times, want 1", count)
	}
}

func TestFlattenCycleTerminates(t *testing.T) {
	t.Parallel()

	a := &model.EntityNode{
		ID: "a", Type: model.NodeTypePage, Title: "A",
		Children: []model.ChildRef{{ID: "b", Type: model.NodeTypeBlock}},
	}
	b := &model.EntityNode{
		ID: "b", Type: model.NodeTypeBlock, Text: "loop",
		Children: []model.ChildRef{{ID: "a", Type: model.NodeTypePage}},
	}

	store, ps := fixture(t, "a", model.NodeTypePage, a, b)

	records, err := New(store, ps).Flatten()
	if err != nil {
		t.Fatalf("Flatten() error: %v", err)
	}
	if len(records) != 1 || records[0].SourceID != "a" {
		t.Errorf("records = %+v", records)
	}
	if !strings.Contains(records[0].TextContent, "loop") {
		t.Errorf("block text missing:\n%s", records[0].TextContent)
	}
}
