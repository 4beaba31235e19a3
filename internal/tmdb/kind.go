package tmdb

import (
	"fmt"
	"strings"
)

// Kind identifies which TMDB catalog a reference points at.
type Kind string

const (
	// KindMovie marks references resolved against the movie catalog.
	KindMovie Kind = "movie"
	// KindSeries marks references resolved against the TV catalog.
	KindSeries Kind = "series"
)

// ParseKind converts a stored kind value back into a Kind. The TV catalog
// accepts both the canonical "series" form and TMDB's own "tv" spelling.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie":
		return KindMovie, nil
	case "series", "tv":
		return KindSeries, nil
	default:
		return "", fmt.Errorf("unknown tmdb kind %q", value)
	}
}

// Valid reports whether the kind names one of the two catalogs.
func (k Kind) Valid() bool {
	return k == KindMovie || k == KindSeries
}

// Opposite returns the other catalog.
func (k Kind) Opposite() Kind {
	if k == KindSeries {
		return KindMovie
	}
	return KindSeries
}

// pathSegment maps the kind onto TMDB's URL namespace.
func (k Kind) pathSegment() string {
	if k == KindSeries {
		return "tv"
	}
	return "movie"
}
