package convert

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelimitedCSV(t *testing.T) {
	csv := "name,qty,notes\nwidget,3,has|pipe\n\ngadget,1,\n"
	res, err := delimitedStrategy(TypeCSV, ',')([]byte(csv))
	require.NoError(t, err)

	assert.Contains(t, res.Content, "| name | qty | notes |")
	assert.Contains(t, res.Content, "| --- | --- | --- |")
	assert.Contains(t, res.Content, `has\|pipe`)
	assert.Contains(t, res.Content, "| gadget | 1 |")
}

func TestDelimitedTSV(t *testing.T) {
	tsv := "a\tb\n1\t2\n"
	res, err := delimitedStrategy(TypeTSV, '\t')([]byte(tsv))
	require.NoError(t, err)
	assert.Contains(t, res.Content, "| a | b |")
	assert.Contains(t, res.Content, "| 1 | 2 |")
}

func TestDelimitedEmpty(t *testing.T) {
	_, err := delimitedStrategy(TypeCSV, ',')([]byte("\n\n"))
	require.Error(t, err)
}

func TestMarkdownTableRaggedRows(t *testing.T) {
	got := markdownTable([][]string{
		{"a", "b", "c"},
		{"1"},
	})
	assert.Contains(t, got, "| 1 |  |  |")
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const workbookXML = `<?xml version="1.0"?>
<workbook><sheets>
  <sheet name="Budget" sheetId="1"/>
  <sheet name="Empty" sheetId="2"/>
</sheets></workbook>`

const sharedStringsXML = `<?xml version="1.0"?>
<sst><si><t>item</t></si><si><r><t>to</t></r><r><t>tal</t></r></si></sst>`

const sheet1XML = `<?xml version="1.0"?>
<worksheet><sheetData>
  <row><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
  <row><c r="A2" t="inlineStr"><is><t>rent</t></is></c><c r="C2"><v>1200</v></c></row>
</sheetData></worksheet>`

const emptySheetXML = `<?xml version="1.0"?><worksheet><sheetData/></worksheet>`

func TestConvertXLSX(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/workbook.xml":          workbookXML,
		"xl/sharedStrings.xml":     sharedStringsXML,
		"xl/worksheets/sheet1.xml": sheet1XML,
		"xl/worksheets/sheet2.xml": emptySheetXML,
	})

	res, err := convertXLSX(data)
	require.NoError(t, err)

	assert.Contains(t, res.Content, "## Budget")
	assert.Contains(t, res.Content, "| item | total |")
	assert.Contains(t, res.Content, "| rent |  | 1200 |")
	assert.NotContains(t, res.Content, "## Empty")
	assert.Equal(t, "1", res.Metadata["sheets"])
	assert.False(t, res.degraded())
}

func TestConvertXLSXNotZip(t *testing.T) {
	_, err := convertXLSX([]byte("plainly not a zip"))
	require.Error(t, err)
}

func TestConvertXLSXAllSheetsEmpty(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/workbook.xml":          `<workbook><sheets><sheet name="One"/></sheets></workbook>`,
		"xl/worksheets/sheet1.xml": emptySheetXML,
	})
	_, err := convertXLSX(data)
	require.Error(t, err)
}

func TestColumnIndex(t *testing.T) {
	assert.Equal(t, 0, columnIndex("A1"))
	assert.Equal(t, 2, columnIndex("C12"))
	assert.Equal(t, 26, columnIndex("AA3"))
	assert.Equal(t, 0, columnIndex("7"))
}
