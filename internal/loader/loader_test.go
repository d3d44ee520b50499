package loader

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Birzhan20/neuro-search-core/internal/repositories"
)

func TestLoad_MissingFile(t *testing.T) {
	l := New()

	_, err := l.Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	l := New()

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	_, err := l.Load(path)
	assert.True(t, errors.Is(err, repositories.ErrUnsupportedFormat))
}

func TestLoad_TextFile(t *testing.T) {
	l := New()

	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("Acme policy: refunds within 30 days."), 0o644))

	units, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, units, 1)

	assert.Equal(t, "Acme policy: refunds within 30 days.", units[0].Text)
	assert.Equal(t, 0, units[0].Page)
	assert.Equal(t, path, units[0].Source)
}

func TestLoad_TextFileUppercaseExtension(t *testing.T) {
	l := New()

	path := filepath.Join(t.TempDir(), "NOTES.TXT")
	require.NoError(t, os.WriteFile(path, []byte("notes"), 0o644))

	units, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "notes", units[0].Text)
}

func TestLoad_Docx(t *testing.T) {
	l := New()

	path := filepath.Join(t.TempDir(), "report.docx")
	writeTestDocx(t, path, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	units, err := l.Load(path)
	require.NoError(t, err)
	require.Len(t, units, 1)

	assert.Equal(t, "First paragraph.\nSecond paragraph.", units[0].Text)
	assert.Equal(t, 0, units[0].Page)
}

func TestLoad_DocxWithoutDocumentXML(t *testing.T) {
	l := New()

	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = l.Load(path)
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.pdf"))
	assert.True(t, Supported("a.DOCX"))
	assert.True(t, Supported("a.txt"))
	assert.False(t, Supported("a.csv"))
	assert.False(t, Supported("a"))
}

func writeTestDocx(t *testing.T, path, documentXML string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}
