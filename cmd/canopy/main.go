// Package main provides the entry point for the canopy CLI.
//
// Canopy pulls a hierarchical content tree from a remote content API,
// flattens it into searchable records, and builds a local vector index.
//
// Usage:
//
//	canopy pull <root-entity-id>
//	canopy parse <root-entity-id>
//	canopy index <root-entity-id>
//
// See --help for all available options.
package main

// main is the entry point for canopy.
func main() {
	Execute()
}
