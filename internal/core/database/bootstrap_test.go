package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapSQLRendersEmbedDim(t *testing.T) {
	script, err := bootstrapSQL(768)
	require.NoError(t, err)
	assert.Contains(t, script, "embedding       vector(768),")
	assert.NotContains(t, script, "{{embed_dim}}")
}

func TestBootstrapSQLDefaultsDimension(t *testing.T) {
	script, err := bootstrapSQL(0)
	require.NoError(t, err)
	assert.Contains(t, script, "vector(768)")
}

func TestBootstrapSQLCreatesCoreTables(t *testing.T) {
	script, err := bootstrapSQL(1536)
	require.NoError(t, err)
	assert.Contains(t, script, "vector(1536)")
	for _, table := range []string{"documents", "document_chunks", "processing_jobs", "organization_keys"} {
		assert.True(t, strings.Contains(script, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}
