// Package match resolves Letterboxd film references to TMDB identifiers.
//
// Resolution strategies run in a fixed order and short-circuit on the
// first success: an unconditional mapping-cache hit, a scored title search
// driven by CSV hints, and a page scrape reserved for references without
// hints. Search candidates score 2 for an exact normalized title match
// plus 1 for a matching year, and only scores of 2 or more are accepted,
// so a year match alone never resolves a reference. Accepted matches are
// written back to the mapping cache keyed by canonical URL.
package match
