// Package export orchestrates bulk asset exports: it drives the paginated
// fetch, the per-record transformation, and the rotation of spreadsheet
// files into the final artifact.
package export

import (
	"context"
	"fmt"
	"time"

	"catalog-export/internal/catalog"
	"catalog-export/internal/common/errors"
	"catalog-export/internal/common/logger"
	"catalog-export/internal/common/metrics"
	"catalog-export/internal/export/archive"
	"catalog-export/internal/export/fetch"
	"catalog-export/internal/export/fields"
	"catalog-export/internal/export/transform"
	"catalog-export/internal/export/workbook"
)

// Catalog is the retrieval surface of the catalog API.
type Catalog interface {
	Count(ctx context.Context, filter catalog.Filter) (int, error)
	Page(ctx context.Context, filter catalog.Filter, columns []string, limit, offset int) ([]catalog.AssetRecord, error)
}

// Config tunes one exporter instance.
type Config struct {
	PageSize    int
	Workers     int
	FileCeiling int
	RowWindow   int
	Prefix      string
}

// Request describes one export. An empty Columns list means a full export
// with the canonical grouped layout.
type Request struct {
	Filter  catalog.Filter `json:"filter"`
	Columns []string       `json:"columns,omitempty"`
}

// Result is the finished artifact plus counters.
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
	Files       int
	Rows        int
}

// Exporter runs exports. It is safe for concurrent use; all per-export
// state lives in the session.
type Exporter struct {
	catalog  Catalog
	registry *fields.Registry
	cfg      Config
	log      logger.Logger
	now      func() time.Time
}

func New(cat Catalog, registry *fields.Registry, cfg Config, log logger.Logger) *Exporter {
	return &Exporter{
		catalog:  cat,
		registry: registry,
		cfg:      cfg,
		log:      log.WithFields(map[string]interface{}{"component": "exporter"}),
		now:      time.Now,
	}
}

// session holds the per-export state. The snapshot instant is captured
// exactly once so every time-window classification in the export is
// consistent, no matter how long the fetch loop runs.
type session struct {
	columns   []fields.Descriptor
	selection []string // column selection forwarded to the catalog, selective only
	selective bool
	snapshot  time.Time
	bundler   *archive.Bundler
	writer    *workbook.Writer
	fileRows  int
	totalRows int
}

// Run executes one export to completion. Any failure aborts the whole
// export; no partial artifact is ever returned.
func (e *Exporter) Run(ctx context.Context, req Request) (*Result, error) {
	metrics.ExportsStarted.Inc()
	metrics.ExportsActive.Inc()
	start := time.Now()
	defer func() {
		metrics.ExportsActive.Dec()
		metrics.ExportDuration.Observe(time.Since(start).Seconds())
	}()

	res, err := e.run(ctx, req)
	if err != nil {
		metrics.ExportsFailed.WithLabelValues(string(errors.CodeOf(err))).Inc()
		return nil, err
	}
	metrics.ExportsCompleted.Inc()
	return res, nil
}

func (e *Exporter) run(ctx context.Context, req Request) (*Result, error) {
	s := e.newSession(req)

	log := e.log.WithFields(map[string]interface{}{
		"selective": s.selective,
		"columns":   len(s.columns),
	})

	total, err := e.catalog.Count(ctx, req.Filter)
	if err != nil {
		return nil, err
	}
	log.Info("starting export", map[string]interface{}{"total": total})

	firstPage, err := e.catalog.Page(ctx, req.Filter, s.selection, e.cfg.PageSize, 0)
	if err != nil {
		return nil, err
	}

	// A full first page signals a large result set and commits the export
	// to multi-file mode; anything smaller is the entire result set.
	if err := s.writeRecords(firstPage, e.cfg); err != nil {
		return nil, err
	}
	if len(firstPage) == e.cfg.PageSize {
		fetcher := fetch.New(e.catalog, e.cfg.PageSize, e.cfg.Workers, e.log)
		for batch, err := range fetcher.Rounds(ctx, req.Filter, s.selection, e.cfg.PageSize, total) {
			if err != nil {
				return nil, err
			}
			if err := s.writeRecords(batch, e.cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := s.finish(e.cfg); err != nil {
		return nil, err
	}

	artifact, err := s.bundler.Bundle()
	if err != nil {
		return nil, errors.NewArchiveBundleFailedError(err)
	}

	metrics.ExportRowsWritten.Add(float64(s.totalRows))
	log.Info("export complete", map[string]interface{}{
		"rows":     s.totalRows,
		"files":    artifact.Files,
		"artifact": artifact.Filename,
	})

	return &Result{
		Filename:    artifact.Filename,
		ContentType: artifact.ContentType,
		Data:        artifact.Data,
		Files:       artifact.Files,
		Rows:        s.totalRows,
	}, nil
}

func (e *Exporter) newSession(req Request) *session {
	s := &session{snapshot: e.now().UTC()}

	if len(req.Columns) == 0 {
		s.columns = e.registry.Canonical()
	} else {
		s.selective = true
		s.columns = e.registry.Select(req.Columns)
		s.selection = req.Columns
	}

	s.bundler = archive.NewBundler(e.cfg.Prefix, s.snapshot)
	return s
}

// writeRecords transforms and appends a batch, rotating to a fresh file
// whenever the per-file ceiling is reached. The writer is created lazily
// so an export whose row count is an exact multiple of the ceiling never
// produces a trailing empty file.
func (s *session) writeRecords(batch []catalog.AssetRecord, cfg Config) error {
	for i := range batch {
		if s.writer == nil {
			w, err := workbook.New(s.columns, !s.selective, cfg.RowWindow)
			if err != nil {
				return errors.NewWorkbookWriteFailedError(err)
			}
			if err := w.WriteHeader(); err != nil {
				return errors.NewWorkbookWriteFailedError(err)
			}
			s.writer = w
			s.fileRows = 0
		}

		row := transform.Row(&batch[i], s.columns, s.snapshot)
		if err := s.writer.WriteRow(row); err != nil {
			return errors.NewWorkbookWriteFailedError(err)
		}
		s.fileRows++
		s.totalRows++

		if s.fileRows == cfg.FileCeiling {
			if err := s.rotate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// rotate finalizes the current file and releases it to the bundler.
// Styles, headers, and sheet handles are per-file; the next file starts
// fresh.
func (s *session) rotate() error {
	data, err := s.writer.Finalize()
	if err != nil {
		return errors.NewFileFinalizeFailedError(fmt.Sprintf("part%d", s.bundler.Len()+1), err)
	}
	s.bundler.Add(data)
	metrics.ExportFilesProduced.Inc()
	s.writer = nil
	s.fileRows = 0
	return nil
}

// finish finalizes the in-progress file, if any. An export that matched
// nothing still produces a single header-only file.
func (s *session) finish(cfg Config) error {
	if s.writer == nil && s.bundler.Len() == 0 {
		w, err := workbook.New(s.columns, !s.selective, cfg.RowWindow)
		if err != nil {
			return errors.NewWorkbookWriteFailedError(err)
		}
		if err := w.WriteHeader(); err != nil {
			return errors.NewWorkbookWriteFailedError(err)
		}
		s.writer = w
	}
	if s.writer == nil {
		return nil
	}
	return s.rotate()
}
