// Package letterboxd handles the site-facing half of reference resolution:
// URL normalization and canonicalization, boxd.it shortlink expansion, and
// film-page scraping.
//
// Canonicalization rewrites user-scoped film URLs onto the shared
// /film/<slug>/ form before any network fetch, because only canonical pages
// carry the TMDB cross-reference the matcher scrapes. Shortlink expansion
// follows redirects with a browser user agent and caches the result, and
// page fetches surface challenge interstitials as ErrChallenged so callers
// can treat them as missing data.
package letterboxd
