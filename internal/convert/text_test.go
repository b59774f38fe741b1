package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	in := `hello <script type="text/javascript">alert(1)</script>world` +
		`<iframe src="evil"></iframe><p onclick="steal()">ok</p>`
	out := Sanitize(in)

	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "iframe")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "<p>ok</p>")
}

func TestConvertPlainText(t *testing.T) {
	res, err := convertPlainText([]byte("line one\r\nline two"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", res.Content)
	assert.Equal(t, TypePlainText, res.OriginalType)
	assert.False(t, res.degraded())
}

func TestConvertPlainTextInvalidUTF8(t *testing.T) {
	_, err := convertPlainText([]byte{0xff, 0xfe, 0x00})
	require.Error(t, err)
}

func TestConvertMarkdownKeepsStructure(t *testing.T) {
	src := "# Title\n\nSome *emphasis* and a [link](http://x).\n"
	res, err := convertMarkdown([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, src, res.Content)
}

func TestConvertHTML(t *testing.T) {
	src := `<html><body><h1>Heading</h1><p>First paragraph.</p>` +
		`<p>Second &amp; final.</p><script>nope()</script></body></html>`
	res, err := convertHTML([]byte(src))
	require.NoError(t, err)

	assert.Contains(t, res.Content, "Heading")
	assert.Contains(t, res.Content, "First paragraph.")
	assert.Contains(t, res.Content, "Second & final.")
	assert.NotContains(t, res.Content, "<")
	assert.NotContains(t, res.Content, "nope")

	// Block boundaries survive as paragraph breaks.
	assert.Contains(t, res.Content, "First paragraph.\n\nSecond")
}

func TestConvertHTMLEmpty(t *testing.T) {
	_, err := convertHTML([]byte("<div><span></span></div>"))
	require.Error(t, err)
}
