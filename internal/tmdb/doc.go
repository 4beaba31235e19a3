// Package tmdb provides the minimal TMDB API client used for reference
// resolution and enrichment.
//
// It exposes title search with an optional release-year filter plus detail
// and credits retrieval for both the movie and TV catalogs. A single Kind
// value selects the catalog, so callers can retry a lookup under the
// opposite catalog when TMDB reports the ID unknown. Options allow tests
// to supply custom HTTP clients without modifying production code.
package tmdb
