package letterboxd_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"filmdex/internal/cache"
	"filmdex/internal/letterboxd"
)

func servePage(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchFilmPageReadsDataAttributes(t *testing.T) {
	server := servePage(t, `<html>
<head><meta property="og:title" content="Parasite (2019)"/></head>
<body data-tmdb-id="496243" data-tmdb-type="movie"><h1>Parasite</h1></body>
</html>`)

	client := letterboxd.New(cache.Disabled{}, time.Hour)
	page, err := client.FetchFilmPage(context.Background(), server.URL+"/film/parasite-2019/")
	if err != nil {
		t.Fatalf("FetchFilmPage returned error: %v", err)
	}
	if page.TMDBID != 496243 || page.Series {
		t.Fatalf("unexpected page identity: %#v", page)
	}
	if page.Title != "Parasite" || page.Year != 2019 {
		t.Fatalf("unexpected page title: %#v", page)
	}
}

func TestFetchFilmPageFallsBackToEmbeddedLink(t *testing.T) {
	server := servePage(t, `<html>
<head><meta property="og:title" content="Twin Peaks (1990)"/></head>
<body><a href="https://www.themoviedb.org/tv/217/" data-track-action="TMDB">TMDB</a></body>
</html>`)

	client := letterboxd.New(cache.Disabled{}, time.Hour)
	page, err := client.FetchFilmPage(context.Background(), server.URL+"/film/twin-peaks/")
	if err != nil {
		t.Fatalf("FetchFilmPage returned error: %v", err)
	}
	if page.TMDBID != 217 || !page.Series {
		t.Fatalf("expected series reference, got %#v", page)
	}
}

func TestFetchFilmPageTitleOnly(t *testing.T) {
	server := servePage(t, `<html>
<head><meta property="og:title" content="Chungking Express (1994)"/></head>
<body><h1>Chungking Express</h1></body>
</html>`)

	client := letterboxd.New(cache.Disabled{}, time.Hour)
	page, err := client.FetchFilmPage(context.Background(), server.URL+"/film/chungking-express/")
	if err != nil {
		t.Fatalf("FetchFilmPage returned error: %v", err)
	}
	if page.HasID() {
		t.Fatalf("expected no TMDB reference, got %#v", page)
	}
	if page.Title != "Chungking Express" || page.Year != 1994 {
		t.Fatalf("unexpected title extraction: %#v", page)
	}
}

func TestFetchFilmPageDetectsChallenge(t *testing.T) {
	server := servePage(t, `<html><head><title>Just a moment...</title></head>
<body><div id="challenge-platform"></div></body></html>`)

	client := letterboxd.New(cache.Disabled{}, time.Hour)
	_, err := client.FetchFilmPage(context.Background(), server.URL+"/film/parasite-2019/")
	if !errors.Is(err, letterboxd.ErrChallenged) {
		t.Fatalf("expected ErrChallenged, got %v", err)
	}
}

func TestFetchFilmPageHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := letterboxd.New(cache.Disabled{}, time.Hour)
	if _, err := client.FetchFilmPage(context.Background(), server.URL+"/film/missing/"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
