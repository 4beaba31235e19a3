package ingest_test

import (
	"errors"
	"strings"
	"testing"

	"filmdex/internal/ingest"
	"filmdex/internal/services"
)

const diaryCSV = `Date,Name,Year,Letterboxd URI,Rating
2024-02-01,Chungking Express,1994,https://boxd.it/2b0c,5
2024-02-03,Chungking Express,1994,https://boxd.it/2b0c,5
2024-02-05,Parasite,2019,https://letterboxd.com/film/parasite-2019/,4.5
`

func TestReadCSVDedupesFirstSeen(t *testing.T) {
	refs, err := ingest.ReadCSV(strings.NewReader(diaryCSV), ingest.CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 distinct references, got %d: %#v", len(refs), refs)
	}
	if refs[0].RawURL != "https://boxd.it/2b0c" {
		t.Fatalf("first-seen order lost: %#v", refs)
	}
	if refs[0].Title != "Chungking Express" || refs[0].Year != 1994 {
		t.Fatalf("hints not carried: %#v", refs[0])
	}
	if refs[1].Title != "Parasite" || refs[1].Year != 2019 {
		t.Fatalf("hints not carried: %#v", refs[1])
	}
}

func TestReadCSVColumnOverride(t *testing.T) {
	input := "Film URL,Name\nhttps://letterboxd.com/film/vertigo/,Vertigo\n"
	refs, err := ingest.ReadCSV(strings.NewReader(input), ingest.CSVOptions{URIColumn: "Film URL"})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if len(refs) != 1 || refs[0].RawURL != "https://letterboxd.com/film/vertigo/" {
		t.Fatalf("unexpected references: %#v", refs)
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	input := "Date,Name\n2024-02-01,Vertigo\n"
	_, err := ingest.ReadCSV(strings.NewReader(input), ingest.CSVOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadCSVNoDataRows(t *testing.T) {
	input := "Date,Name,Year,Letterboxd URI\n"
	_, err := ingest.ReadCSV(strings.NewReader(input), ingest.CSVOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, err := ingest.ReadCSV(strings.NewReader(""), ingest.CSVOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadCSVQuotedFields(t *testing.T) {
	input := "Name,Year,Letterboxd URI\n" +
		"\"I, Tonya\",2017,https://letterboxd.com/film/i-tonya/\n" +
		"\"The \"\"Film\"\"\",2020,https://letterboxd.com/film/the-film/\n"
	refs, err := ingest.ReadCSV(strings.NewReader(input), ingest.CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if len(refs) != 2 || refs[0].Title != "I, Tonya" {
		t.Fatalf("quoted fields mishandled: %#v", refs)
	}
	if refs[1].Title != `The "Film"` {
		t.Fatalf("doubled quotes mishandled: %#v", refs[1])
	}
}

func TestReadCSVBlankURLsSkipped(t *testing.T) {
	input := "Name,Letterboxd URI\nVertigo,\nParasite,https://letterboxd.com/film/parasite-2019/\n"
	refs, err := ingest.ReadCSV(strings.NewReader(input), ingest.CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if len(refs) != 1 || refs[0].Title != "Parasite" {
		t.Fatalf("unexpected references: %#v", refs)
	}
}
