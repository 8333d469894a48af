// Package archive packages finished spreadsheet files into the export
// artifact.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"

	stampLayout = "20060102_150405"
)

// Artifact is the finished export output: one spreadsheet, or a zip of
// several.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Files       int
}

// Bundler collects finished spreadsheet files for one export. Names carry
// the export-type prefix and the generation timestamp; multi-file exports
// get a part number per file.
type Bundler struct {
	prefix string
	stamp  time.Time
	files  [][]byte
}

func NewBundler(prefix string, stamp time.Time) *Bundler {
	return &Bundler{prefix: prefix, stamp: stamp}
}

// Add appends one finished spreadsheet.
func (b *Bundler) Add(data []byte) {
	b.files = append(b.files, data)
}

// Len returns the number of files collected so far.
func (b *Bundler) Len() int {
	return len(b.files)
}

func (b *Bundler) baseName() string {
	return fmt.Sprintf("%s_export_%s", b.prefix, b.stamp.Format(stampLayout))
}

// Bundle produces the artifact: a single file is returned as-is, multiple
// files are zipped.
func (b *Bundler) Bundle() (*Artifact, error) {
	switch len(b.files) {
	case 0:
		return nil, fmt.Errorf("archive: no files to bundle")
	case 1:
		return &Artifact{
			Filename:    b.baseName() + ".xlsx",
			ContentType: xlsxContentType,
			Data:        b.files[0],
			Files:       1,
		}, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, data := range b.files {
		name := fmt.Sprintf("%s_part%d.xlsx", b.baseName(), i+1)
		entry, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("archive: create entry %s: %w", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("archive: write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close: %w", err)
	}

	return &Artifact{
		Filename:    b.baseName() + ".zip",
		ContentType: zipContentType,
		Data:        buf.Bytes(),
		Files:       len(b.files),
	}, nil
}
