// Package flatten turns a fetched entity tree into flat, index-ready
// records.
//
// One record is produced per indexable node (pages and database rows)
// whose fetch completed. Block text is folded into the nearest
// indexable ancestor's record, ancestry is captured as a title path
// from the root, and all text is Unicode-normalized so equal content
// always hashes and embeds the same.
package flatten
