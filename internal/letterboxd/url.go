package letterboxd

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// filmURLRe matches canonical film URLs and user-scoped film URLs:
//   - https://letterboxd.com/film/<slug>/
//   - https://letterboxd.com/<username>/film/<slug>/
var filmURLRe = regexp.MustCompile(`https?://letterboxd\.com/(?:[^/]+/)?film/([^/]+)/`)

// Normalize trims whitespace, drops any URL fragment, and ensures a
// trailing slash. It does not validate that the URL points at a film page.
func Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	if idx := strings.Index(rawURL, "#"); idx >= 0 {
		rawURL = rawURL[:idx]
	}
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	return rawURL
}

// Canonicalize rewrites a film URL, user-scoped or not, to the canonical
// https://letterboxd.com/film/<slug>/ form. Only canonical pages carry the
// cross-reference links the matcher scrapes. Returns "" when the URL does
// not point at a film page.
func Canonicalize(rawURL string) string {
	m := filmURLRe.FindStringSubmatch(Normalize(rawURL))
	if m == nil {
		return ""
	}
	return "https://letterboxd.com/film/" + m[1] + "/"
}

// Slug returns the film slug from a film URL, lowercased so curated-list
// membership checks compare consistently. Returns "" for non-film URLs.
func Slug(url string) string {
	m := filmURLRe.FindStringSubmatch(Normalize(url))
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// DefaultShortlinkHost is the short-link domain Letterboxd hands out.
const DefaultShortlinkHost = "boxd.it"

// IsShortlink reports whether the URL is a boxd.it short link.
func IsShortlink(rawURL string) bool {
	return IsShortlinkHost(rawURL, DefaultShortlinkHost)
}

// IsShortlinkHost reports whether the URL points at the given short-link
// host.
func IsShortlinkHost(rawURL, host string) bool {
	if host == "" {
		host = DefaultShortlinkHost
	}
	return strings.Contains(rawURL, host+"/")
}

// TitleFromSlug derives a human-readable display title from a film slug,
// for entries that never resolved far enough to learn their real title.
func TitleFromSlug(slug string) string {
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range slug {
		switch {
		case r == '-' || r == '_':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		default:
			cleaned.WriteRune(r)
			prevSpace = false
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return ""
	}
	return cases.Title(language.Und).String(title)
}
