package archive

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStamp(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", "2024-03-15 10:30:00")
	require.NoError(t, err)
	return ts
}

func TestBundleEmptyFails(t *testing.T) {
	b := NewBundler("assets", testStamp(t))
	_, err := b.Bundle()
	assert.Error(t, err)
}

func TestBundleSingleFilePassesThrough(t *testing.T) {
	b := NewBundler("assets", testStamp(t))
	b.Add([]byte("xlsx-bytes"))

	artifact, err := b.Bundle()
	require.NoError(t, err)

	assert.Equal(t, "assets_export_20240315_103000.xlsx", artifact.Filename)
	assert.Equal(t, xlsxContentType, artifact.ContentType)
	assert.Equal(t, []byte("xlsx-bytes"), artifact.Data)
	assert.Equal(t, 1, artifact.Files)
}

func TestBundleMultipleFilesZips(t *testing.T) {
	b := NewBundler("assets", testStamp(t))
	b.Add([]byte("file-one"))
	b.Add([]byte("file-two"))
	b.Add([]byte("file-three"))

	artifact, err := b.Bundle()
	require.NoError(t, err)

	assert.Equal(t, "assets_export_20240315_103000.zip", artifact.Filename)
	assert.Equal(t, zipContentType, artifact.ContentType)
	assert.Equal(t, 3, artifact.Files)

	zr, err := zip.NewReader(bytes.NewReader(artifact.Data), int64(len(artifact.Data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	expected := []string{
		"assets_export_20240315_103000_part1.xlsx",
		"assets_export_20240315_103000_part2.xlsx",
		"assets_export_20240315_103000_part3.xlsx",
	}
	for i, f := range zr.File {
		assert.Equal(t, expected[i], f.Name)

		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)
		assert.NotEmpty(t, buf.Bytes())
	}
}
