package convert

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
)

// Legacy pre-XML word processor files get a layered fallback chain. Each
// tier below the specialized parser must produce a non-throwing result;
// only an unreadable byte stream fails the whole conversion.

var zipSignature = []byte("PK\x03\x04")

// legacyPrintableRuns extracts runs of at least three printable characters
// containing a letter, deduplicates them, and joins them into a document.
// Always a degraded result.
func legacyPrintableRuns(data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("legacy doc: empty input")
	}

	var runs []string
	seen := make(map[string]bool)
	var cur []rune
	flush := func() {
		if len(cur) >= 3 {
			s := strings.TrimSpace(string(cur))
			if s != "" && hasLetter(s) && !seen[s] {
				seen[s] = true
				runs = append(runs, s)
			}
		}
		cur = cur[:0]
	}
	for _, b := range data {
		r := rune(b)
		if r == '\t' || (unicode.IsPrint(r) && r < 0x7f) {
			cur = append(cur, r)
		} else {
			flush()
		}
	}
	flush()

	if len(runs) == 0 {
		return nil, fmt.Errorf("legacy doc: no printable text found")
	}

	res := newResult(TypeDOC, "printable-runs", strings.Join(runs, "\n"))
	res.Metadata["warning"] = "extracted via printable-byte heuristic; formatting and some text may be lost"
	return res, nil
}

// legacyAsZipContainer reinterprets a mislabeled .doc as a zipped OOXML
// document when the header signature matches.
func legacyAsZipContainer(data []byte) (*Result, error) {
	if !bytes.HasPrefix(data, zipSignature) {
		return nil, fmt.Errorf("legacy doc: not a zip container")
	}
	res, err := docconvStrategy(TypeDOC, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")(data)
	if err != nil {
		return nil, err
	}
	res.Metadata["converter"] = "doc-as-docx"
	return res, nil
}

// legacyPlaceholder is the terminal tier: a clearly marked placeholder
// explaining the limitation. It always succeeds, as a degraded result.
func legacyPlaceholder(data []byte) (*Result, error) {
	content := fmt.Sprintf(
		"[Legacy document: %d bytes]\n\n"+
			"This file uses a binary word processor format that could not be parsed. "+
			"No readable text was recovered. Re-save the document as .docx, .pdf or "+
			"plain text and upload it again for full-text search.",
		len(data))
	res := newResult(TypeDOC, "placeholder", content)
	res.Metadata["warning"] = "unparseable legacy format; placeholder content emitted"
	return res, nil
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
