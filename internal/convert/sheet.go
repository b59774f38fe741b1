package convert

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Tabular formats render as Markdown tables, one section per sheet, in
// original sheet order. Empty sheets are skipped.

func delimitedStrategy(t DocumentType, delimiter rune) Strategy {
	return func(data []byte) (*Result, error) {
		r := csv.NewReader(bytes.NewReader(data))
		r.Comma = delimiter
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("delimited %s: %w", t, err)
		}
		table := markdownTable(rows)
		if table == "" {
			return nil, fmt.Errorf("delimited %s: no rows", t)
		}
		res := newResult(t, "delimited", table)
		res.Metadata["rows"] = strconv.Itoa(len(rows))
		return res, nil
	}
}

// markdownTable renders rows as a GitHub-style table. The first row is
// treated as the header. Returns "" for empty input.
func markdownTable(rows [][]string) string {
	rows = trimEmptyRows(rows)
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = strings.ReplaceAll(strings.TrimSpace(row[i]), "|", "\\|")
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

func trimEmptyRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

// convertXLSX reads the workbook without external dependencies: sheet names
// from xl/workbook.xml, shared strings, then each worksheet's cells.
func convertXLSX(data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	names, err := xlsxSheetNames(zr)
	if err != nil {
		return nil, err
	}
	shared, _ := xlsxSharedStrings(zr) // optional; workbooks without strings lack the part

	var sections []string
	rendered := 0
	for i, name := range names {
		entry := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		raw, err := readZipEntry(zr, entry)
		if err != nil {
			continue
		}
		rows, err := xlsxSheetRows(raw, shared)
		if err != nil {
			return nil, fmt.Errorf("xlsx sheet %q: %w", name, err)
		}
		table := markdownTable(rows)
		if table == "" {
			continue // empty sheet
		}
		sections = append(sections, "## "+name+"\n\n"+table)
		rendered++
	}
	if rendered == 0 {
		return nil, fmt.Errorf("xlsx: workbook has no non-empty sheets")
	}

	res := newResult(TypeXLSX, "xlsx", strings.Join(sections, "\n\n"))
	res.Metadata["sheets"] = strconv.Itoa(rendered)
	return res, nil
}

func xlsxSheetNames(zr *zip.Reader) ([]string, error) {
	raw, err := readZipEntry(zr, "xl/workbook.xml")
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	var wb struct {
		Sheets struct {
			Sheet []struct {
				Name string `xml:"name,attr"`
			} `xml:"sheet"`
		} `xml:"sheets"`
	}
	if err := xml.Unmarshal(raw, &wb); err != nil {
		return nil, fmt.Errorf("xlsx: parse workbook.xml: %w", err)
	}
	names := make([]string, 0, len(wb.Sheets.Sheet))
	for _, s := range wb.Sheets.Sheet {
		names = append(names, s.Name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("xlsx: workbook lists no sheets")
	}
	return names, nil
}

func xlsxSharedStrings(zr *zip.Reader) ([]string, error) {
	raw, err := readZipEntry(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil, err
	}
	var sst struct {
		SI []struct {
			T string `xml:"t"`
			R []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	if err := xml.Unmarshal(raw, &sst); err != nil {
		return nil, fmt.Errorf("xlsx: parse sharedStrings.xml: %w", err)
	}
	out := make([]string, len(sst.SI))
	for i, si := range sst.SI {
		if si.T != "" {
			out[i] = si.T
			continue
		}
		var b strings.Builder
		for _, run := range si.R {
			b.WriteString(run.T)
		}
		out[i] = b.String()
	}
	return out, nil
}

func xlsxSheetRows(raw []byte, shared []string) ([][]string, error) {
	var sheet struct {
		SheetData struct {
			Row []struct {
				C []struct {
					R string `xml:"r,attr"`
					T string `xml:"t,attr"`
					V string `xml:"v"`
					IS struct {
						T string `xml:"t"`
					} `xml:"is"`
				} `xml:"c"`
			} `xml:"row"`
		} `xml:"sheetData"`
	}
	if err := xml.Unmarshal(raw, &sheet); err != nil {
		return nil, err
	}

	var rows [][]string
	for _, row := range sheet.SheetData.Row {
		var cells []string
		for _, c := range row.C {
			col := columnIndex(c.R)
			for len(cells) < col {
				cells = append(cells, "")
			}
			cells = append(cells, cellValue(c.T, c.V, c.IS.T, shared))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func cellValue(cellType, v, inline string, shared []string) string {
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(v)
		if err == nil && idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
		return ""
	case "inlineStr":
		return inline
	default:
		return v
	}
}

// columnIndex converts the letter prefix of a cell reference ("BC12") to a
// zero-based column number.
func columnIndex(ref string) int {
	n := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		n = n*26 + int(r-'A') + 1
	}
	if n == 0 {
		return 0
	}
	return n - 1
}
