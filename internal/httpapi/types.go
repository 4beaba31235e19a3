package httpapi

import "filmdex/internal/pipeline"

// HealthResponse reports service readiness for monitoring.
type HealthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Cache   CacheHealth `json:"cache"`
	TMDB    TMDBHealth  `json:"tmdb"`
}

// CacheHealth describes the lookup cache backend.
type CacheHealth struct {
	Backend   string `json:"backend"`
	Reachable bool   `json:"reachable"`
	Entries   int    `json:"entries"`
}

// TMDBHealth reports whether enrichment is available.
type TMDBHealth struct {
	Configured bool `json:"configured"`
}

// JobRequest is the JSON submission body: a bare list of film URLs.
type JobRequest struct {
	URLs []string `json:"urls"`
}

// JobAccepted is the 202 response for a submitted batch.
type JobAccepted struct {
	ID        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// JobListResponse wraps the job listing.
type JobListResponse struct {
	Jobs []pipeline.JobSnapshot `json:"jobs"`
}
