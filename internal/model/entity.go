package model

import "time"

// NodeType identifies the kind of entity in the content tree.
type NodeType string

// Entity node types recognized by the remote content API.
const (
	// NodeTypePage is a standalone page with properties and child blocks.
	NodeTypePage NodeType = "page"

	// NodeTypeBlock is a content block nested under a page or another block.
	NodeTypeBlock NodeType = "block"

	// NodeTypeDatabase is a collection whose children are database rows.
	NodeTypeDatabase NodeType = "database"

	// NodeTypeDatabaseRow is one row of a database. Rows carry properties
	// like pages do and may themselves contain child blocks.
	NodeTypeDatabaseRow NodeType = "database_row"
)

// Valid reports whether t is one of the recognized node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypePage, NodeTypeBlock, NodeTypeDatabase, NodeTypeDatabaseRow:
		return true
	}
	return false
}

// Indexable reports whether nodes of this type become standalone flat
// records. Blocks and databases contribute text to their enclosing page
// or row instead of producing records of their own.
func (t NodeType) Indexable() bool {
	return t == NodeTypePage || t == NodeTypeDatabaseRow
}

// ChildRef is a typed reference to a child entity. The type is needed up
// front because the fetch request for a child must name its kind.
type ChildRef struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
}

// EntityNode is one unit of the content tree as fetched from the remote
// API. The relation graph is a tree from the source's point of view, but
// a node may be linked from more than one parent (shared sub-pages), so
// consumers must dedupe by ID and treat the graph as a DAG.
type EntityNode struct {
	// ID is the opaque identifier, globally unique in the source system.
	ID string `json:"id"`

	// Type is the entity kind.
	Type NodeType `json:"type"`

	// ParentID is an optional back-reference. It is a relation only;
	// ownership of a node's lifecycle stays with the crawl state.
	ParentID string `json:"parent_id,omitempty"`

	// Title is the human-readable title, if the entity carries one.
	Title string `json:"title,omitempty"`

	// URL is the canonical source URL, if exposed by the API.
	URL string `json:"url,omitempty"`

	// Text is the plain-text content for block-like entities.
	Text string `json:"text,omitempty"`

	// Properties holds the typed property values of pages and rows.
	Properties map[string]PropertyValue `json:"properties,omitempty"`

	// Content carries type-specific payload fields verbatim so the raw
	// store loses nothing the flatten stage might not understand yet.
	Content map[string]any `json:"content,omitempty"`

	// Children lists the direct child references in source order.
	// Populated only after a successful fetch of this node.
	Children []ChildRef `json:"children"`

	// CreatedTime and LastEditedTime are source-side timestamps.
	CreatedTime    time.Time `json:"created_time,omitzero"`
	LastEditedTime time.Time `json:"last_edited_time,omitzero"`
}

// ChildIDs returns the IDs of the node's direct children in order.
func (n *EntityNode) ChildIDs() []string {
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		ids = append(ids, c.ID)
	}
	return ids
}
