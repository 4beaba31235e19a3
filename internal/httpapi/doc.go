// Package httpapi serves the batch submission and job polling endpoints.
//
// POST /api/jobs accepts a Letterboxd CSV export or a JSON URL list and
// returns 202 with a job id; GET /api/jobs and GET /api/jobs/{id} poll
// tracked jobs; GET /api/health reports cache and TMDB readiness. Batch
// runs execute detached from the submitting request and are observed
// through the job tracker rather than cancelled with the connection.
package httpapi
