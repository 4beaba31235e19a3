// Package lists loads curated membership lists and exposes them as slug
// sets for per-film membership flags.
package lists
