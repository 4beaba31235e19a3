package match

import (
	"strings"
	"unicode"

	"filmdex/internal/tmdb"
)

// acceptScore is the minimum candidate score an accepted match needs. An
// exact normalized title match scores 2, a matching year scores 1, so a
// year match alone never qualifies.
const acceptScore = 2

// normalizeTitle lowercases the title and strips everything except letters
// and digits so source and candidate titles compare on content alone.
func normalizeTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	var builder strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func scoreCandidate(candidate tmdb.SearchResult, normalizedQuery string, year int) int {
	score := 0
	if normalizedQuery != "" && normalizeTitle(candidate.DisplayTitle()) == normalizedQuery {
		score += 2
	}
	if year > 0 && candidate.Year() == year {
		score++
	}
	return score
}

// pickBest returns the highest-scoring candidate. Ties keep the earliest
// candidate in API order.
func pickBest(results []tmdb.SearchResult, title string, year int) (tmdb.SearchResult, int) {
	normalized := normalizeTitle(title)
	best := tmdb.SearchResult{}
	bestScore := -1
	for _, candidate := range results {
		if score := scoreCandidate(candidate, normalized, year); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}
