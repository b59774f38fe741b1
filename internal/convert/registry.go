package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/haleth-io/vectorpipe/internal/core"
)

// DocumentType identifies a supported input format.
type DocumentType string

const (
	TypePlainText DocumentType = "txt"
	TypeMarkdown  DocumentType = "md"
	TypeHTML      DocumentType = "html"
	TypeCSV       DocumentType = "csv"
	TypeTSV       DocumentType = "tsv"
	TypeXLSX      DocumentType = "xlsx"
	TypePDF       DocumentType = "pdf"
	TypeDOCX      DocumentType = "docx"
	TypeDOC       DocumentType = "doc"
	TypeRTF       DocumentType = "rtf"
	TypePPTX      DocumentType = "pptx"
	TypeODT       DocumentType = "odt"
	TypeEPUB      DocumentType = "epub"
)

// Result is the normalized output of a conversion.
type Result struct {
	Content      string
	Metadata     map[string]string
	OriginalType DocumentType
}

// degraded reports whether a strategy had to fall back to a heuristic or
// partial extraction. Degraded results carry a "warning" metadata entry.
func (r *Result) degraded() bool {
	_, ok := r.Metadata["warning"]
	return ok
}

// Strategy is one pure bytes -> Result conversion attempt.
type Strategy func(data []byte) (*Result, error)

// Registry maps detected document types to ordered conversion strategies.
// For each type the registry tries strategies in order and adopts the first
// non-degraded success; if only degraded successes occur, the first of those
// wins. Placeholder strategies sit last and always succeed, so total failure
// is reserved for unreadable byte streams.
type Registry struct {
	byExt      map[string]DocumentType
	byMIME     map[string]DocumentType
	strategies map[DocumentType][]Strategy
}

func NewRegistry() *Registry {
	r := &Registry{
		byExt: map[string]DocumentType{
			".txt":      TypePlainText,
			".text":     TypePlainText,
			".log":      TypePlainText,
			".md":       TypeMarkdown,
			".markdown": TypeMarkdown,
			".html":     TypeHTML,
			".htm":      TypeHTML,
			".csv":      TypeCSV,
			".tsv":      TypeTSV,
			".xlsx":     TypeXLSX,
			".pdf":      TypePDF,
			".docx":     TypeDOCX,
			".doc":      TypeDOC,
			".rtf":      TypeRTF,
			".pptx":     TypePPTX,
			".odt":      TypeODT,
			".epub":     TypeEPUB,
		},
		byMIME: map[string]DocumentType{
			"text/plain":                TypePlainText,
			"text/markdown":             TypeMarkdown,
			"text/html":                 TypeHTML,
			"text/csv":                  TypeCSV,
			"text/tab-separated-values": TypeTSV,
			"application/pdf":           TypePDF,
			"application/rtf":           TypeRTF,
			"application/msword":        TypeDOC,
			"application/epub+zip":      TypeEPUB,
			"application/vnd.oasis.opendocument.text":                                   TypeODT,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   TypeDOCX,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         TypeXLSX,
			"application/vnd.openxmlformats-officedocument.presentationml.presentation": TypePPTX,
		},
		strategies: map[DocumentType][]Strategy{},
	}

	r.register(TypePlainText, convertPlainText)
	r.register(TypeMarkdown, convertMarkdown)
	r.register(TypeHTML, convertHTML)
	r.register(TypeCSV, delimitedStrategy(TypeCSV, ','))
	r.register(TypeTSV, delimitedStrategy(TypeTSV, '\t'))
	r.register(TypeXLSX, convertXLSX)
	r.register(TypePDF, docconvStrategy(TypePDF, "application/pdf"))
	r.register(TypeDOCX, docconvStrategy(TypeDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	r.register(TypeRTF, docconvStrategy(TypeRTF, "application/rtf"))
	r.register(TypePPTX, docconvStrategy(TypePPTX, "application/vnd.openxmlformats-officedocument.presentationml.presentation"))

	// Legacy .doc: specialized parser, printable-run heuristic, reinterpret
	// as zipped docx, then a placeholder that always succeeds.
	r.register(TypeDOC,
		docconvStrategy(TypeDOC, "application/msword"),
		legacyPrintableRuns,
		legacyAsZipContainer,
		legacyPlaceholder,
	)

	// Archive formats: structured entry extraction first, generic
	// markup-stripping pass second.
	r.register(TypeODT,
		docconvStrategy(TypeODT, "application/vnd.oasis.opendocument.text"),
		archiveStructured(TypeODT),
		archiveStripAll(TypeODT),
	)
	r.register(TypeEPUB,
		archiveStructured(TypeEPUB),
		archiveStripAll(TypeEPUB),
	)

	return r
}

func (r *Registry) register(t DocumentType, s ...Strategy) {
	r.strategies[t] = append(r.strategies[t], s...)
}

// Detect resolves a document type from the filename extension first, then
// the MIME type. ok=false means the format is unsupported.
func (r *Registry) Detect(filename, mimeType string) (DocumentType, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := r.byExt[ext]; ok {
		return t, true
	}
	// MIME types often carry parameters ("text/plain; charset=utf-8").
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	if t, ok := r.byMIME[mime]; ok {
		return t, true
	}
	return "", false
}

// Supported reports whether any strategies are registered for the type.
func (r *Registry) Supported(t DocumentType) bool {
	return len(r.strategies[t]) > 0
}

// Convert runs the type's strategies in order. The first non-degraded
// success wins; otherwise the first degraded success is returned. An error
// is returned only when every strategy failed.
func (r *Registry) Convert(t DocumentType, data []byte) (*Result, error) {
	strategies, ok := r.strategies[t]
	if !ok || len(strategies) == 0 {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, t)
	}

	var firstDegraded *Result
	var lastErr error
	for _, s := range strategies {
		res, err := s(data)
		if err != nil {
			lastErr = err
			continue
		}
		if res.OriginalType == "" {
			res.OriginalType = t
		}
		if !res.degraded() {
			return res, nil
		}
		if firstDegraded == nil {
			firstDegraded = res
		}
	}
	if firstDegraded != nil {
		return firstDegraded, nil
	}
	return nil, fmt.Errorf("convert %q: %w", t, lastErr)
}

// newResult builds a Result with a metadata map seeded with the converter name.
func newResult(t DocumentType, converter, content string) *Result {
	return &Result{
		Content:      content,
		Metadata:     map[string]string{"converter": converter},
		OriginalType: t,
	}
}
