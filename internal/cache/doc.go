// Package cache provides the best-effort lookup cache shared by the whole
// pipeline.
//
// Four namespaces are layered over one string store: expanded shortlinks,
// canonical-URL-to-TMDB mappings, enriched metadata records, and curated list
// slug sets. Every key carries a schema version so a format change abandons
// stale entries without migrations.
//
// Backends are interchangeable (memory, JSON file, SQLite, Redis, off) and
// deliberately fail soft: a broken backend degrades to misses and the
// pipeline runs entirely from the network. Nothing in this package returns an
// error to a lookup caller.
package cache
