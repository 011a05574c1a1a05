// Package model defines the core data types shared across the canopy
// pipeline: entity nodes fetched from the remote content API, node crawl
// statuses, flattened records produced for indexing, and pull summaries.
//
// Types in this package are plain data carriers. Behavior that mutates
// crawl progress lives in the state package; transformation logic lives
// in the flatten package.
package model
