package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"filmdex/internal/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestSearchMovieYearParameter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "key" {
			t.Fatalf("expected api_key query parameter, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("primary_release_year") != "1994" {
			t.Fatalf("expected primary_release_year, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":1,"title":"Chungking Express","release_date":"1994-07-14"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	resp, err := client.Search(context.Background(), tmdb.KindMovie, "Chungking Express", 1994)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Chungking Express" {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if got := resp.Results[0].Year(); got != 1994 {
		t.Fatalf("Year() = %d, want 1994", got)
	}
}

func TestSearchSeriesYearParameter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tv" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("first_air_date_year") != "1990" {
			t.Fatalf("expected first_air_date_year, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":7,"name":"Twin Peaks","first_air_date":"1990-04-08"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	resp, err := client.Search(context.Background(), tmdb.KindSeries, "Twin Peaks", 1990)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].DisplayTitle() != "Twin Peaks" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), tmdb.KindMovie, "  ", 0); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status_code":500}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), tmdb.KindMovie, "fail", 0); err == nil {
		t.Fatal("expected error when TMDB returns non-200")
	}
}

func TestDetailsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Details(context.Background(), tmdb.KindMovie, 42)
	if !errors.Is(err, tmdb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDetailsSeriesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/217" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":217,"name":"Twin Peaks","original_name":"Twin Peaks","first_air_date":"1990-04-08","episode_run_time":[47],"origin_country":["US"]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	details, err := client.Details(context.Background(), tmdb.KindSeries, 217)
	if err != nil {
		t.Fatalf("Details returned error: %v", err)
	}
	if details.DisplayTitle() != "Twin Peaks" || details.FirstDate() != "1990-04-08" {
		t.Fatalf("unexpected details: %#v", details)
	}
	runtime := details.RuntimeMinutes(tmdb.KindSeries)
	if runtime == nil || *runtime != 47 {
		t.Fatalf("RuntimeMinutes = %v, want 47", runtime)
	}
}

func TestCreditsCrewDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603/credits" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":603,"crew":[{"name":"Lana Wachowski","job":"Director","gender":1},{"name":"Lilly Wachowski","job":"Director","gender":1}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	credits, err := client.Credits(context.Background(), tmdb.KindMovie, 603)
	if err != nil {
		t.Fatalf("Credits returned error: %v", err)
	}
	if len(credits.Crew) != 2 || credits.Crew[0].Job != "Director" {
		t.Fatalf("unexpected credits: %#v", credits)
	}
}

func TestRuntimeMinutesTreatsZeroAsUnknown(t *testing.T) {
	zero := int64(0)
	details := &tmdb.Details{Runtime: &zero}
	if got := details.RuntimeMinutes(tmdb.KindMovie); got != nil {
		t.Fatalf("expected nil runtime for zero value, got %d", *got)
	}
	details = &tmdb.Details{}
	if got := details.RuntimeMinutes(tmdb.KindMovie); got != nil {
		t.Fatalf("expected nil runtime for missing value, got %d", *got)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]tmdb.Kind{
		"movie":  tmdb.KindMovie,
		"series": tmdb.KindSeries,
		"tv":     tmdb.KindSeries,
		"Movie":  tmdb.KindMovie,
	}
	for input, want := range cases {
		got, err := tmdb.ParseKind(input)
		if err != nil {
			t.Fatalf("ParseKind(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := tmdb.ParseKind("album"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestKindOpposite(t *testing.T) {
	if tmdb.KindMovie.Opposite() != tmdb.KindSeries {
		t.Fatal("movie opposite should be series")
	}
	if tmdb.KindSeries.Opposite() != tmdb.KindMovie {
		t.Fatal("series opposite should be movie")
	}
}
