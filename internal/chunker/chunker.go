package chunker

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/haleth-io/vectorpipe/internal/models"
	"github.com/haleth-io/vectorpipe/internal/tokens"
)

// Strategy selects how normalized text is split before accumulation.
type Strategy string

const (
	StrategyParagraph Strategy = "paragraph"
	StrategySentence  Strategy = "sentence"
	StrategySemantic  Strategy = "semantic"
)

// Chunk type markers stored in chunk metadata.
const (
	ChunkTypeText    = "text"
	ChunkTypeHeading = "heading"
)

// Options tunes a chunking run.
type Options struct {
	ChunkSize       int // approximate tokens per chunk
	ChunkOverlap    int // tokens carried over between consecutive chunks
	Strategy        Strategy
	PreserveHeaders bool
}

// DefaultOptions mirror the production ingestion defaults.
func DefaultOptions() Options {
	return Options{ChunkSize: 500, ChunkOverlap: 50, Strategy: StrategyParagraph, PreserveHeaders: true}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = d.ChunkOverlap
	}
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	return o
}

// Chunker splits normalized text into bounded, overlapping segments.
type Chunker struct {
	tokens tokens.Counter
}

func New(counter tokens.Counter) *Chunker {
	return &Chunker{tokens: counter}
}

var (
	paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)
	headingRe        = regexp.MustCompile(`^#{1,6}\s`)
	sentenceRe       = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*|[^.!?]+$`)
)

// Chunk splits text per the options and returns chunks with contiguous
// 0-based indices in emission order; that order is the canonical reading
// order reconstructed by concatenation.
func (c *Chunker) Chunk(documentID, text string, opts Options) []models.DocumentChunk {
	opts = opts.withDefaults()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []piece
	switch opts.Strategy {
	case StrategySentence:
		pieces = c.accumulateUnits(splitSentences(text), " ", opts, false)
	case StrategySemantic:
		pieces = c.chunkSemantic(text, opts)
	default:
		pieces = c.chunkParagraphs(text, opts)
	}

	out := make([]models.DocumentChunk, 0, len(pieces))
	for i, p := range pieces {
		out = append(out, models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			ChunkIndex: i,
			Content:    p.content,
			TokenCount: p.tokenCount,
			Strategy:   string(opts.Strategy),
			ChunkType:  p.kind,
		})
	}
	return out
}

// piece is one emitted chunk before it gets an identity.
type piece struct {
	content    string
	tokenCount int
	kind       string
}

// chunkParagraphs implements the default strategy: accumulate paragraphs up
// to the token budget, seed each size-triggered successor with an overlap
// tail, give headings their own chunk starts, and recursively split any
// paragraph that alone exceeds the budget.
func (c *Chunker) chunkParagraphs(text string, opts Options) []piece {
	b := c.newBuilder(opts, "\n\n")
	for _, para := range splitParagraphs(text) {
		if opts.PreserveHeaders && headingRe.MatchString(para) {
			// Headings always start a new chunk and never inherit overlap.
			b.flush(false)
			b.add(para)
			continue
		}

		pt := c.tokens.Count(para)
		if pt > opts.ChunkSize {
			b.flush(true)
			b.emitAll(c.splitOversized(para, opts))
			continue
		}
		if b.tokenSum+pt > opts.ChunkSize {
			b.flush(true)
		}
		b.add(para)
	}
	b.flush(false)
	return b.out
}

// accumulateUnits runs the shared accumulate/flush/overlap procedure over
// pre-split units (sentences or semantic groups).
func (c *Chunker) accumulateUnits(units []string, joiner string, opts Options, preserveHeaders bool) []piece {
	b := c.newBuilder(opts, joiner)
	b.joiner = joiner
	for _, u := range units {
		if preserveHeaders && headingRe.MatchString(u) {
			b.flush(false)
			b.add(u)
			continue
		}
		ut := c.tokens.Count(u)
		if ut > opts.ChunkSize {
			b.flush(true)
			b.emitAll(c.splitOversized(u, opts))
			continue
		}
		if b.tokenSum+ut > opts.ChunkSize {
			b.flush(true)
		}
		b.add(u)
	}
	b.flush(false)
	return b.out
}

// splitOversized breaks a single too-large block on line boundaries with
// the same accumulate/flush/overlap procedure, hard-splitting any single
// line that still exceeds the budget.
func (c *Chunker) splitOversized(block string, opts Options) []piece {
	b := c.newBuilder(opts, "\n")
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}
		lt := c.tokens.Count(line)
		if lt > opts.ChunkSize {
			b.flush(true)
			for _, slab := range c.splitByWords(line, opts.ChunkSize) {
				b.emit(slab, c.tokens.Count(slab))
			}
			continue
		}
		if b.tokenSum+lt > opts.ChunkSize {
			b.flush(true)
		}
		b.add(line)
	}
	b.flush(false)
	return b.out
}

// splitByWords is the last resort for a single line with no split points.
func (c *Chunker) splitByWords(line string, chunkSize int) []string {
	words := strings.Fields(line)
	var out []string
	var cur []string
	tok := 0
	for _, w := range words {
		wt := c.tokens.Count(w)
		if tok+wt > chunkSize && len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur, tok = nil, 0
		}
		cur = append(cur, w)
		tok += wt
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

// overlapTail returns the last ~overlap tokens of content, snapped to a
// word boundary.
func (c *Chunker) overlapTail(content string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	words := strings.Fields(content)
	if len(words) == 0 {
		return ""
	}
	tok := 0
	start := len(words)
	for start > 0 {
		wt := c.tokens.Count(words[start-1])
		if tok+wt > overlap && start < len(words) {
			break
		}
		tok += wt
		start--
		if tok >= overlap {
			break
		}
	}
	return strings.Join(words[start:], " ")
}

func splitParagraphs(text string) []string {
	raw := paragraphSplitRe.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitSentences(text string) []string {
	flat := strings.Join(strings.Fields(text), " ")
	raw := sentenceRe.FindAllString(flat, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// builder accumulates units into token-bounded pieces, carrying overlap
// between size-triggered flushes.
type builder struct {
	c        *Chunker
	opts     Options
	joiner   string
	buf      []string
	tokenSum int
	overlap  string // pending overlap seed for the next buffered unit
	out      []piece
}

func (c *Chunker) newBuilder(opts Options, joiner string) *builder {
	return &builder{c: c, opts: opts, joiner: joiner}
}

func (b *builder) add(unit string) {
	if len(b.buf) == 0 && b.overlap != "" {
		b.buf = append(b.buf, b.overlap)
		b.tokenSum += b.c.tokens.Count(b.overlap)
		b.overlap = ""
	}
	b.buf = append(b.buf, unit)
	b.tokenSum += b.c.tokens.Count(unit)
}

// flush emits the buffered units as one piece. seedOverlap marks a
// size-triggered flush: the next chunk then begins with this piece's tail.
func (b *builder) flush(seedOverlap bool) {
	if len(b.buf) == 0 {
		if !seedOverlap {
			b.overlap = ""
		}
		return
	}
	content := strings.Join(b.buf, b.joiner)
	b.emit(content, b.tokenSum)
	b.buf = b.buf[:0]
	b.tokenSum = 0
	if seedOverlap {
		b.overlap = b.c.overlapTail(content, b.opts.ChunkOverlap)
	} else {
		b.overlap = ""
	}
}

func (b *builder) emit(content string, tokenCount int) {
	kind := ChunkTypeText
	if headingRe.MatchString(content) {
		kind = ChunkTypeHeading
	}
	b.out = append(b.out, piece{content: content, tokenCount: tokenCount, kind: kind})
}

func (b *builder) emitAll(pieces []piece) {
	for _, p := range pieces {
		b.out = append(b.out, p)
	}
	if n := len(pieces); n > 0 {
		b.overlap = b.c.overlapTail(pieces[n-1].content, b.opts.ChunkOverlap)
	}
}
