package tokens

import (
	"log"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in a text span.
type Counter interface {
	Count(s string) int
}

// Estimator counts tokens with a cl100k_base BPE encoder when one can be
// loaded, and falls back to a cheap ~4 chars/token heuristic otherwise.
// Chunk bounds are therefore exact in the common case and approximate in
// the degraded one.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// NewEstimator loads the BPE encoder. Load failure is not fatal: the
// estimator degrades to the heuristic.
func NewEstimator() *Estimator {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Printf("WARN: tiktoken encoder unavailable, using heuristic token counts: %v", err)
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

// NewHeuristicEstimator returns an estimator that always uses the
// chars/4 approximation. Used in tests and offline environments.
func NewHeuristicEstimator() *Estimator {
	return &Estimator{}
}

func (e *Estimator) Count(s string) int {
	if s == "" {
		return 0
	}
	if e.enc != nil {
		return len(e.enc.Encode(s, nil, nil))
	}
	return approxTokens(s)
}

// approxTokens estimates ~4 characters per token, rounded up.
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
