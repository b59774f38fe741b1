package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Archive-based formats (ODT, EPUB) are zip containers. Structured
// extraction lists the entries, pulls the primary content entry, and decodes
// its markup into headings and paragraphs. When that yields no prose, a
// generic markup-stripping pass over every textual entry serves as fallback.

func archiveStructured(t DocumentType) Strategy {
	return func(data []byte) (*Result, error) {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", t, err)
		}
		switch t {
		case TypeODT:
			return odtContent(zr)
		case TypeEPUB:
			return epubContent(zr)
		}
		return nil, fmt.Errorf("archive %s: no structured extractor", t)
	}
}

// odtContent decodes content.xml, turning text:h elements into Markdown
// headings and text:p elements into paragraphs.
func odtContent(zr *zip.Reader) (*Result, error) {
	data, err := readZipEntry(zr, "content.xml")
	if err != nil {
		return nil, fmt.Errorf("odt: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var blocks []string
	var cur strings.Builder
	var inBlock bool
	var headingLevel int

	endBlock := func() {
		text := strings.TrimSpace(cur.String())
		cur.Reset()
		inBlock = false
		if text == "" {
			return
		}
		if headingLevel > 0 {
			if headingLevel > 6 {
				headingLevel = 6
			}
			text = strings.Repeat("#", headingLevel) + " " + text
		}
		blocks = append(blocks, text)
		headingLevel = 0
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("odt: parse content.xml: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "h":
				inBlock = true
				headingLevel = 1
				for _, a := range el.Attr {
					if a.Name.Local == "outline-level" {
						if lvl, err := strconv.Atoi(a.Value); err == nil {
							headingLevel = lvl
						}
					}
				}
			case "p":
				inBlock = true
			}
		case xml.EndElement:
			if el.Name.Local == "h" || el.Name.Local == "p" {
				endBlock()
			}
		case xml.CharData:
			if inBlock {
				cur.Write(el)
			}
		}
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("odt: no prose in content.xml")
	}
	res := newResult(TypeODT, "odt-archive", strings.Join(blocks, "\n\n"))
	res.Metadata["blocks"] = strconv.Itoa(len(blocks))
	return res, nil
}

// epubContent strips markup from the spine's XHTML entries in entry order.
func epubContent(zr *zip.Reader) (*Result, error) {
	var names []string
	for _, f := range zr.File {
		n := strings.ToLower(f.Name)
		if strings.HasSuffix(n, ".xhtml") || strings.HasSuffix(n, ".html") || strings.HasSuffix(n, ".htm") {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("epub: no content entries")
	}
	sort.Strings(names)

	var sections []string
	for _, name := range names {
		data, err := readZipEntry(zr, name)
		if err != nil {
			continue
		}
		if text := stripMarkup(string(data)); text != "" {
			sections = append(sections, text)
		}
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("epub: content entries held no prose")
	}
	res := newResult(TypeEPUB, "epub-archive", strings.Join(sections, "\n\n"))
	res.Metadata["entries"] = strconv.Itoa(len(sections))
	return res, nil
}

// archiveStripAll is the generic fallback: strip markup from every textual
// entry in the archive. Degraded, since document structure is lost.
func archiveStripAll(t DocumentType) Strategy {
	return func(data []byte) (*Result, error) {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", t, err)
		}
		var parts []string
		for _, f := range zr.File {
			n := strings.ToLower(f.Name)
			if !strings.HasSuffix(n, ".xml") && !strings.HasSuffix(n, ".xhtml") &&
				!strings.HasSuffix(n, ".html") && !strings.HasSuffix(n, ".txt") {
				continue
			}
			entry, err := readZipEntry(zr, f.Name)
			if err != nil {
				continue
			}
			if text := stripMarkup(string(entry)); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("archive %s: no textual entries", t)
		}
		res := newResult(t, "archive-strip", strings.Join(parts, "\n\n"))
		res.Metadata["warning"] = "structured extraction failed; markup stripped from raw archive entries"
		return res, nil
	}
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %s not found", name)
}
