// Package index builds and stores the local vector index.
//
// Flattened records land in a per-root SQLite database together with
// their embedding vectors. Records are content-hashed so an unchanged
// record is never re-embedded; only new or changed text costs an
// embedding call.
package index
