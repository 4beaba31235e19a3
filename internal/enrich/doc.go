// Package enrich turns resolved TMDB identifiers into denormalized film
// records.
//
// Details and credits load concurrently per identifier. An identifier the
// primary catalog does not know is retried once under the opposite catalog
// before the reference is declared dead, because film-site cross-links
// occasionally point at series. Credits failures degrade to a recorded
// error string on the record rather than failing the fetch. Derivation
// rules for countries, languages, contributor roles, and the woman-of-role
// flags are documented on Record and covered by the package tests.
package enrich
