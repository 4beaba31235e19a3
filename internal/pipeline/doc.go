// Package pipeline orchestrates a batch from ingested references to a
// canonical film index: bounded shortlink resolution, first-seen merging
// onto canonical URLs, curated-list membership annotation, and optional
// TMDB matching and enrichment. A Tracker exposes asynchronous runs as
// pollable jobs.
package pipeline
