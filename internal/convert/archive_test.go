package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const odtContentXML = `<?xml version="1.0"?>
<office:document-content xmlns:office="urn:office" xmlns:text="urn:text">
  <office:body><office:text>
    <text:h text:outline-level="2">Chapter One</text:h>
    <text:p>It was a dark and stormy night.</text:p>
    <text:p></text:p>
    <text:p>The rain fell in torrents.</text:p>
  </office:text></office:body>
</office:document-content>`

func TestODTStructured(t *testing.T) {
	data := buildZip(t, map[string]string{
		"mimetype":    "application/vnd.oasis.opendocument.text",
		"content.xml": odtContentXML,
	})

	res, err := archiveStructured(TypeODT)(data)
	require.NoError(t, err)

	assert.Contains(t, res.Content, "## Chapter One")
	assert.Contains(t, res.Content, "It was a dark and stormy night.")
	assert.Contains(t, res.Content, "The rain fell in torrents.")
	assert.Equal(t, "3", res.Metadata["blocks"])
	assert.False(t, res.degraded())
}

func TestODTMissingContentEntry(t *testing.T) {
	data := buildZip(t, map[string]string{"mimetype": "whatever"})
	_, err := archiveStructured(TypeODT)(data)
	require.Error(t, err)
}

func TestEPUBStructured(t *testing.T) {
	data := buildZip(t, map[string]string{
		"OEBPS/ch2.xhtml": "<html><body><p>Second chapter text.</p></body></html>",
		"OEBPS/ch1.xhtml": "<html><body><p>First chapter text.</p></body></html>",
		"OEBPS/style.css": "p { margin: 0 }",
	})

	res, err := archiveStructured(TypeEPUB)(data)
	require.NoError(t, err)

	// Entries are processed in sorted order.
	assert.Less(t,
		strings.Index(res.Content, "First chapter text."),
		strings.Index(res.Content, "Second chapter text."))
	assert.NotContains(t, res.Content, "margin")
}

func TestArchiveStripAllFallback(t *testing.T) {
	data := buildZip(t, map[string]string{
		"meta.xml":  "<meta><title>Fallback Title</title></meta>",
		"thumb.png": "\x89PNG not text",
	})

	res, err := archiveStripAll(TypeODT)(data)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Fallback Title")
	assert.True(t, res.degraded())
}

func TestArchiveStripAllNothingTextual(t *testing.T) {
	data := buildZip(t, map[string]string{"thumb.png": "binary"})
	_, err := archiveStripAll(TypeODT)(data)
	require.Error(t, err)
}
