package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryExtractOK(t *testing.T) {
	r := NewRegistry()
	syms := r.Extract("pkg/mod.py", []byte("def f():\n    return 1\n"))

	require.NotNil(t, syms)
	assert.Equal(t, StatusOK, syms.Status)
	assert.Equal(t, "python", syms.Language)
	assert.Equal(t, "pkg/mod.py", syms.Path)
	assert.Equal(t, 2, syms.LineCount)
	require.Len(t, syms.Functions, 1)
}

func TestRegistryExtractFailedKeepsFile(t *testing.T) {
	r := NewRegistry()
	syms := r.Extract("broken.py", []byte("def f(:\n"))

	require.NotNil(t, syms)
	assert.Equal(t, StatusFailed, syms.Status)
	assert.Equal(t, "python", syms.Language)
	assert.NotEmpty(t, syms.Diagnostic)
	assert.Empty(t, syms.Functions)
	assert.Equal(t, 1, syms.LineCount)
}

func TestRegistryOpaqueFallback(t *testing.T) {
	r := NewRegistry()
	syms := r.Extract("data/schema.sql", []byte("SELECT 1;\n"))

	require.NotNil(t, syms)
	assert.Equal(t, StatusSkipped, syms.Status)
	assert.Equal(t, LanguageTagUnknown, syms.Language)
	assert.Equal(t, 1, syms.LineCount)
	assert.Zero(t, syms.TotalDecls())
}

func TestRegistryLanguages(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"python", "go", "typescript", "javascript", "java", "rust"}, r.Languages())
}
