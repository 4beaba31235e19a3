package enrich

import (
	"filmdex/internal/tmdb"
)

// Contributor is one credited crew member. Gender uses the service's
// coding: 0 unspecified, 1 female, 2 male, 3 non-binary.
type Contributor struct {
	Name   string `json:"name"`
	Gender int    `json:"gender"`
}

// Record is the denormalized metadata kept per film. Field derivations are
// fixed: country codes fall back to the origin-country list when no
// production countries exist, IsAmerican means "US" appears in the
// resolved code set, IsEnglish means the original language is "en", and
// the two woman flags are true iff any contributor in that role carries
// gender code 1. Gender code 0 is unknown and never counts either way.
type Record struct {
	TMDBID           int64         `json:"tmdb_id"`
	Kind             tmdb.Kind     `json:"kind"`
	Title            string        `json:"title"`
	OriginalTitle    string        `json:"original_title"`
	OriginalLanguage string        `json:"original_language"`
	ReleaseDate      string        `json:"release_date"`
	Overview         string        `json:"overview"`
	Runtime          *int64        `json:"runtime"`
	Genres           []string      `json:"genres"`
	Popularity       float64       `json:"popularity"`
	VoteAverage      float64       `json:"vote_average"`
	VoteCount        int64         `json:"vote_count"`
	PosterPath       string        `json:"poster_path"`
	BackdropPath     string        `json:"backdrop_path"`
	CountryCodes     []string      `json:"country_codes"`
	CountryNames     []string      `json:"country_names"`
	IsAmerican       bool          `json:"is_american"`
	LanguageCodes    []string      `json:"language_codes"`
	LanguageNames    []string      `json:"language_names"`
	IsEnglish        bool          `json:"is_english"`
	Directors        []Contributor `json:"directors"`
	Writers          []Contributor `json:"writers"`
	DirectedByWoman  bool          `json:"directed_by_woman"`
	WrittenByWoman   bool          `json:"written_by_woman"`
	CreditsError     string        `json:"credits_error,omitempty"`

	// FromCache reports whether this record was served from the metadata
	// cache. Never persisted.
	FromCache bool `json:"-"`
}

// writerJobs are the credit roles counted as writing contributions.
var writerJobs = map[string]bool{
	"Writer":     true,
	"Screenplay": true,
	"Story":      true,
	"Characters": true,
}

const femaleGenderCode = 1

func buildRecord(kind tmdb.Kind, details *tmdb.Details, credits *tmdb.Credits, creditsErr error) *Record {
	record := &Record{
		TMDBID:           details.ID,
		Kind:             kind,
		Title:            details.DisplayTitle(),
		OriginalTitle:    details.OriginalDisplayTitle(),
		OriginalLanguage: details.OriginalLanguage,
		ReleaseDate:      details.FirstDate(),
		Overview:         details.Overview,
		Runtime:          details.RuntimeMinutes(kind),
		Popularity:       details.Popularity,
		VoteAverage:      details.VoteAverage,
		VoteCount:        details.VoteCount,
		PosterPath:       details.PosterPath,
		BackdropPath:     details.BackdropPath,
		IsEnglish:        details.OriginalLanguage == "en",
		Directors:        []Contributor{},
		Writers:          []Contributor{},
	}

	record.Genres = make([]string, 0, len(details.Genres))
	for _, genre := range details.Genres {
		if genre.Name != "" {
			record.Genres = append(record.Genres, genre.Name)
		}
	}

	record.CountryCodes, record.CountryNames = deriveCountries(details)
	for _, code := range record.CountryCodes {
		if code == "US" {
			record.IsAmerican = true
			break
		}
	}

	record.LanguageCodes = make([]string, 0, len(details.SpokenLanguages))
	record.LanguageNames = make([]string, 0, len(details.SpokenLanguages))
	for _, lang := range details.SpokenLanguages {
		if lang.Code == "" {
			continue
		}
		record.LanguageCodes = append(record.LanguageCodes, lang.Code)
		name := lang.EnglishName
		if name == "" {
			name = lang.Name
		}
		record.LanguageNames = append(record.LanguageNames, name)
	}

	if creditsErr != nil {
		record.CreditsError = creditsErr.Error()
		return record
	}
	if credits != nil {
		for _, member := range credits.Crew {
			switch {
			case member.Job == "Director":
				record.Directors = append(record.Directors, Contributor{Name: member.Name, Gender: member.Gender})
			case writerJobs[member.Job]:
				record.Writers = append(record.Writers, Contributor{Name: member.Name, Gender: member.Gender})
			}
		}
	}
	record.DirectedByWoman = anyWoman(record.Directors)
	record.WrittenByWoman = anyWoman(record.Writers)
	return record
}

// deriveCountries prefers production countries; series often carry only an
// origin-country code list, which has no display names, so names mirror
// codes on that path.
func deriveCountries(details *tmdb.Details) ([]string, []string) {
	codes := make([]string, 0, len(details.ProductionCountries))
	names := make([]string, 0, len(details.ProductionCountries))
	for _, country := range details.ProductionCountries {
		if country.Code == "" {
			continue
		}
		codes = append(codes, country.Code)
		name := country.Name
		if name == "" {
			name = country.Code
		}
		names = append(names, name)
	}
	if len(codes) > 0 {
		return codes, names
	}

	codes = make([]string, 0, len(details.OriginCountry))
	names = make([]string, 0, len(details.OriginCountry))
	for _, code := range details.OriginCountry {
		if code == "" {
			continue
		}
		codes = append(codes, code)
		names = append(names, code)
	}
	return codes, names
}

func anyWoman(contributors []Contributor) bool {
	for _, contributor := range contributors {
		if contributor.Gender == femaleGenderCode {
			return true
		}
	}
	return false
}
