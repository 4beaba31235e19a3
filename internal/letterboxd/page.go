package letterboxd

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrChallenged marks a bot-challenge interstitial response. The page body
// carries no film data, so callers treat it as an absent page rather than
// a transport failure.
var ErrChallenged = errors.New("letterboxd served a challenge page")

// FilmPage holds the facts extractable from a canonical film page. TMDBID
// is zero when the page carries no cross-reference; Title and Year come
// from the page's Open Graph metadata and may be empty independently.
type FilmPage struct {
	TMDBID int64
	Series bool
	Title  string
	Year   int
}

// HasID reports whether the page carried a TMDB cross-reference.
func (p *FilmPage) HasID() bool {
	return p != nil && p.TMDBID > 0
}

var (
	tmdbLinkRe = regexp.MustCompile(`https?://(?:www\.)?themoviedb\.org/(movie|tv)/(\d+)`)
	ogTitleRe  = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)
)

// challengeMarkers identify interstitial pages served in place of film data.
var challengeMarkers = []string{"Just a moment", "cf-browser-verification", "challenge-platform"}

func parseFilmPage(body []byte) (*FilmPage, error) {
	html := string(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(html, marker) {
			return nil, ErrChallenged
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	page := &FilmPage{}
	if value, ok := doc.Find("body").Attr("data-tmdb-id"); ok {
		if id, convErr := strconv.ParseInt(strings.TrimSpace(value), 10, 64); convErr == nil && id > 0 {
			page.TMDBID = id
			kind, _ := doc.Find("body").Attr("data-tmdb-type")
			page.Series = strings.EqualFold(strings.TrimSpace(kind), "tv")
		}
	}
	if page.TMDBID == 0 {
		if m := tmdbLinkRe.FindStringSubmatch(html); m != nil {
			if id, convErr := strconv.ParseInt(m[2], 10, 64); convErr == nil && id > 0 {
				page.TMDBID = id
				page.Series = m[1] == "tv"
			}
		}
	}
	if content, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		page.Title, page.Year = parseDisplayTitle(content)
	}
	return page, nil
}

// parseDisplayTitle splits an Open Graph title such as
// "Chungking Express (1994)" into its title and year parts. Titles without
// a parenthesized year come back whole with a zero year.
func parseDisplayTitle(content string) (string, int) {
	content = strings.TrimSpace(content)
	if m := ogTitleRe.FindStringSubmatch(content); m != nil {
		if year, err := strconv.Atoi(m[2]); err == nil {
			return strings.TrimSpace(m[1]), year
		}
	}
	return content, 0
}
