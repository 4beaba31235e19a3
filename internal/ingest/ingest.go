package ingest

import "strings"

// Reference is one distinct raw film URL extracted from an input source,
// carrying the title and year hints from the first row that mentioned it.
type Reference struct {
	RawURL string
	Title  string
	Year   int
}

// FromURLs builds references from a bare URL list, dropping blanks and
// duplicates. URL-only sources carry no title or year hints.
func FromURLs(urls []string) []Reference {
	refs := make([]Reference, 0, len(urls))
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		refs = append(refs, Reference{RawURL: url})
	}
	return dedupe(refs)
}

// dedupe keeps the first occurrence of each raw URL, preserving input order.
func dedupe(refs []Reference) []Reference {
	seen := make(map[string]struct{}, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.RawURL]; ok {
			continue
		}
		seen[ref.RawURL] = struct{}{}
		out = append(out, ref)
	}
	return out
}
