package memory

import "strings"

// JoinFacts serializes fact contents as the comma-joined corpus passed to
// the extractor and the completion provider.
func JoinFacts(contents []string) string {
	return strings.Join(contents, ", ")
}

// SplitCorpus parses comma-separated extractor output into trimmed,
// non-empty candidate facts.
func SplitCorpus(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NewCandidates returns the candidates from updated that are not already
// present as a substring of the joined corpus, collapsing duplicates within
// the batch. A candidate whose text appears verbatim anywhere in the corpus
// is not new.
func NewCandidates(joined, updated string) []string {
	seen := make(map[string]struct{})
	var fresh []string
	for _, cand := range SplitCorpus(updated) {
		if strings.Contains(joined, cand) {
			continue
		}
		if _, dup := seen[cand]; dup {
			continue
		}
		seen[cand] = struct{}{}
		fresh = append(fresh, cand)
	}
	return fresh
}
