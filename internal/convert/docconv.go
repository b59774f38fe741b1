package convert

import (
	"bytes"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
)

// docconvStrategy wraps docconv for the binary formats it handles natively
// (PDF, DOCX, RTF, PPTX, ODT, and legacy DOC when the external tooling is
// present). An empty extraction counts as a failure so the next strategy
// in the chain gets a shot.
func docconvStrategy(t DocumentType, mimeType string) Strategy {
	return func(data []byte) (*Result, error) {
		res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
		if err != nil {
			return nil, fmt.Errorf("docconv %s: %w", mimeType, err)
		}
		if strings.TrimSpace(res.Body) == "" {
			return nil, fmt.Errorf("docconv %s: extracted empty text", mimeType)
		}
		out := newResult(t, "docconv", strings.ReplaceAll(res.Body, "\r\n", "\n"))
		for k, v := range res.Meta {
			out.Metadata["doc_"+strings.ToLower(k)] = v
		}
		return out, nil
	}
}
