package chunker

import (
	"strings"
)

// The semantic strategy groups sentences by lexical-overlap proximity and
// feeds the groups through the shared accumulator. It is a best-effort
// extensibility point: with too little signal it falls back to plain
// paragraph splitting. Embedding-similarity grouping could slot in here
// without changing the contract.

const (
	semanticMinSentences = 4
	semanticThreshold    = 0.1
)

func (c *Chunker) chunkSemantic(text string, opts Options) []piece {
	sentences := splitSentences(text)
	if len(sentences) < semanticMinSentences {
		return c.chunkParagraphs(text, opts)
	}

	groups := groupByLexicalOverlap(sentences)
	if len(groups) == 0 {
		return c.chunkParagraphs(text, opts)
	}
	return c.accumulateUnits(groups, " ", opts, false)
}

// groupByLexicalOverlap merges each sentence into the running group while
// its word set overlaps the group's tail sentence enough, starting a new
// group otherwise.
func groupByLexicalOverlap(sentences []string) []string {
	var groups []string
	var cur []string
	var prevSet map[string]bool

	for _, s := range sentences {
		set := contentWords(s)
		if len(cur) > 0 && jaccard(prevSet, set) < semanticThreshold {
			groups = append(groups, strings.Join(cur, " "))
			cur = nil
		}
		cur = append(cur, s)
		prevSet = set
	}
	if len(cur) > 0 {
		groups = append(groups, strings.Join(cur, " "))
	}
	return groups
}

// contentWords lowercases and keeps words long enough to carry signal.
func contentWords(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, `.,;:!?"'()[]`)
		if len(w) > 3 {
			set[w] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
