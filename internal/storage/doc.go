// Package storage manages the on-disk layout of fetched content.
//
// Each root entity owns a directory under the data directory with a
// raw/ area of fetched node payloads and a parsed/ area of flattened
// records. Writes are content-addressed: a node whose payload is
// unchanged is not rewritten, so re-runs leave unchanged files alone.
package storage
