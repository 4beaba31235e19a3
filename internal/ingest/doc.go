// Package ingest extracts film references from Letterboxd exports and
// diary feeds.
//
// Both readers return the distinct raw URLs in first-seen order, each
// carrying the title and year hints from the first row or item that
// mentioned it. Inputs with no usable rows are validation errors so a
// batch fails before any network work starts.
package ingest
