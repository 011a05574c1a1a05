package model

// FlatRecord is the uniform searchable representation of one indexable
// unit (a page or a database row) produced by the flatten stage and
// consumed by the index stage.
type FlatRecord struct {
	// SourceID is the entity ID of the page or row this record came from.
	SourceID string `json:"source_id"`

	// Type is the source entity type (page or database_row).
	Type NodeType `json:"type"`

	// Title is the record title, normalized to NFC. Empty when the
	// entity has no title.
	Title string `json:"title"`

	// TextContent is the assembled searchable text: title, property text,
	// and the text of every descendant block in tree order.
	TextContent string `json:"text_content"`

	// URL is the canonical source URL.
	URL string `json:"url,omitempty"`

	// PropertyBag maps type-tagged property keys to their plain-text
	// values. Keys are produced by PropertyValue.BagKey, so the declared
	// type of each value survives across records that reuse a property
	// name.
	PropertyBag map[string]string `json:"property_bag,omitempty"`

	// AncestryPath lists the titles of ancestors from the crawl root
	// down to the record's parent. Untitled ancestors are skipped.
	AncestryPath []string `json:"ancestry_path"`
}
