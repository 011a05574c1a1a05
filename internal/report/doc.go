// Package report renders pull summaries for people and for tools.
//
// Three formats share one Writer interface: plain text for terminals,
// JSON for pipelines, and Markdown for sharing. MultiWriter fans a
// summary out to several destinations at once.
package report
