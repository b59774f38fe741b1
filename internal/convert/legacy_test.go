package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyPrintableRuns(t *testing.T) {
	data := append([]byte{0x00, 0x01, 0x02}, []byte("Quarterly Report")...)
	data = append(data, 0x00, 0x03)
	data = append(data, []byte("Revenue grew 4%")...)
	data = append(data, 0x00)
	data = append(data, []byte("Quarterly Report")...) // duplicate run

	res, err := legacyPrintableRuns(data)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Report\nRevenue grew 4%", res.Content)
	assert.True(t, res.degraded())
	assert.Equal(t, "printable-runs", res.Metadata["converter"])
}

func TestLegacyPrintableRunsNoText(t *testing.T) {
	_, err := legacyPrintableRuns([]byte{0x00, 0x01, 0x02, 0x03})
	require.Error(t, err)

	_, err = legacyPrintableRuns(nil)
	require.Error(t, err)
}

func TestLegacyPrintableRunsSkipsNumericNoise(t *testing.T) {
	// Runs without a letter are dropped.
	data := append([]byte("123456"), 0x00)
	data = append(data, []byte("real words")...)

	res, err := legacyPrintableRuns(data)
	require.NoError(t, err)
	assert.Equal(t, "real words", res.Content)
}

func TestLegacyAsZipContainerRejectsNonZip(t *testing.T) {
	_, err := legacyAsZipContainer([]byte("not a zip"))
	require.Error(t, err)
}

func TestLegacyPlaceholder(t *testing.T) {
	res, err := legacyPlaceholder(make([]byte, 42))
	require.NoError(t, err)
	assert.True(t, res.degraded())
	assert.Contains(t, res.Content, "[Legacy document: 42 bytes]")
	assert.Contains(t, res.Content, "Re-save the document")
}
