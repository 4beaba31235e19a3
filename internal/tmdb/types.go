package tmdb

import "strconv"

// SearchResult represents a single TMDB search match.
type SearchResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

// DisplayTitle returns the movie title or the series name, whichever is set.
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Year returns the four-digit release year, or 0 when the date is missing.
func (r SearchResult) Year() int {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// SearchResponse models the TMDB paginated search response.
type SearchResponse struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// Genre describes a TMDB genre tag.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductionCountry describes a production country attached to a title.
type ProductionCountry struct {
	Code string `json:"iso_3166_1"`
	Name string `json:"name"`
}

// SpokenLanguage describes a spoken language attached to a title.
type SpokenLanguage struct {
	Code        string `json:"iso_639_1"`
	Name        string `json:"name"`
	EnglishName string `json:"english_name"`
}

// Details captures the TMDB detail payload for a movie or a series. The two
// catalogs share most fields; title, date, and runtime differ per catalog
// and are reconciled by the helper methods below.
type Details struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	Name                string              `json:"name"`
	OriginalTitle       string              `json:"original_title"`
	OriginalName        string              `json:"original_name"`
	OriginalLanguage    string              `json:"original_language"`
	Overview            string              `json:"overview"`
	ReleaseDate         string              `json:"release_date"`
	FirstAirDate        string              `json:"first_air_date"`
	Runtime             *int64              `json:"runtime"`
	EpisodeRunTime      []int64             `json:"episode_run_time"`
	Genres              []Genre             `json:"genres"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	OriginCountry       []string            `json:"origin_country"`
	Popularity          float64             `json:"popularity"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int64               `json:"vote_count"`
	PosterPath          string              `json:"poster_path"`
	BackdropPath        string              `json:"backdrop_path"`
}

// DisplayTitle returns the localized movie title or series name.
func (d *Details) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// OriginalDisplayTitle returns the original-language movie title or series name.
func (d *Details) OriginalDisplayTitle() string {
	if d.OriginalTitle != "" {
		return d.OriginalTitle
	}
	return d.OriginalName
}

// FirstDate returns the release date for movies or the first air date for series.
func (d *Details) FirstDate() string {
	if d.ReleaseDate != "" {
		return d.ReleaseDate
	}
	return d.FirstAirDate
}

// RuntimeMinutes returns the runtime for movies, or the first episode
// runtime for series. Nil means TMDB does not know the runtime; a zero
// value from the API counts as unknown.
func (d *Details) RuntimeMinutes(kind Kind) *int64 {
	if kind == KindSeries {
		if len(d.EpisodeRunTime) == 0 || d.EpisodeRunTime[0] <= 0 {
			return nil
		}
		minutes := d.EpisodeRunTime[0]
		return &minutes
	}
	if d.Runtime == nil || *d.Runtime <= 0 {
		return nil
	}
	minutes := *d.Runtime
	return &minutes
}

// CrewMember describes one crew credit. Gender follows TMDB's coding:
// 0 unspecified, 1 female, 2 male, 3 non-binary.
type CrewMember struct {
	Name   string `json:"name"`
	Job    string `json:"job"`
	Gender int    `json:"gender"`
}

// Credits captures the crew list for a movie or series.
type Credits struct {
	ID   int64        `json:"id"`
	Crew []CrewMember `json:"crew"`
}
