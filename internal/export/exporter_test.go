package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"catalog-export/internal/catalog"
	"catalog-export/internal/common/logger"
	"catalog-export/internal/export/fields"
)

// fakeCatalog serves a fixed record set through the paginated contract.
type fakeCatalog struct {
	records  []catalog.AssetRecord
	countErr error
	failAt   int // page offset that fails, -1 for never
}

func newFakeCatalog(records []catalog.AssetRecord) *fakeCatalog {
	return &fakeCatalog{records: records, failAt: -1}
}

func (c *fakeCatalog) Count(_ context.Context, _ catalog.Filter) (int, error) {
	if c.countErr != nil {
		return 0, c.countErr
	}
	return len(c.records), nil
}

func (c *fakeCatalog) Page(_ context.Context, _ catalog.Filter, _ []string, limit, offset int) ([]catalog.AssetRecord, error) {
	if c.failAt >= 0 && offset == c.failAt {
		return nil, fmt.Errorf("page at offset %d unavailable", offset)
	}
	if offset >= len(c.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(c.records) {
		end = len(c.records)
	}
	return c.records[offset:end], nil
}

func makeRecords(n int) []catalog.AssetRecord {
	out := make([]catalog.AssetRecord, n)
	for i := range out {
		out[i] = catalog.AssetRecord{
			Attributes: map[string]interface{}{
				"contentId": fmt.Sprintf("ast-%04d", i),
				"mainTitle": fmt.Sprintf("Title %d", i),
			},
		}
	}
	return out
}

func testExporter(cat Catalog, cfg Config) *Exporter {
	return New(cat, fields.NewRegistry("2006-01-02"), cfg, logger.NewNoOpLogger())
}

// sheetRows opens one xlsx and returns all rows of the Assets sheet.
func sheetRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Assets")
	require.NoError(t, err)
	return rows
}

// archiveSheets unpacks a zip artifact and returns the rows of each file,
// in part order.
func archiveSheets(t *testing.T, data []byte) [][][]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var out [][][]string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)
		out = append(out, sheetRows(t, buf.Bytes()))
	}
	return out
}

func TestRunSmallResultSetSingleFile(t *testing.T) {
	// 3 records, page size 2, 2 workers: the first full page commits to the
	// round loop, but everything fits one file so the artifact is a plain
	// spreadsheet.
	cat := newFakeCatalog(makeRecords(3))
	e := testExporter(cat, Config{PageSize: 2, Workers: 2, FileCeiling: 100, RowWindow: 10, Prefix: "assets"})

	res, err := e.Run(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 3, res.Rows)
	assert.True(t, strings.HasSuffix(res.Filename, ".xlsx"), "single file exports are not archived")

	rows := sheetRows(t, res.Data)
	assert.Len(t, rows, 2+3, "group row, header row, three data rows")
}

func TestRunLargeResultSetSplitsFiles(t *testing.T) {
	// 12 records against a ceiling of 10 must produce an archive of two
	// files with 10 and 2 rows.
	cat := newFakeCatalog(makeRecords(12))
	e := testExporter(cat, Config{PageSize: 3, Workers: 2, FileCeiling: 10, RowWindow: 4, Prefix: "assets"})

	res, err := e.Run(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 12, res.Rows)
	assert.True(t, strings.HasSuffix(res.Filename, ".zip"))

	sheets := archiveSheets(t, res.Data)
	require.Len(t, sheets, 2)
	assert.Len(t, sheets[0], 2+10)
	assert.Len(t, sheets[1], 2+2)
}

func TestRunExactMultipleHasNoTrailingEmptyFile(t *testing.T) {
	cat := newFakeCatalog(makeRecords(10))
	e := testExporter(cat, Config{PageSize: 2, Workers: 2, FileCeiling: 5, RowWindow: 4, Prefix: "assets"})

	res, err := e.Run(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	sheets := archiveSheets(t, res.Data)
	require.Len(t, sheets, 2)
	assert.Len(t, sheets[0], 2+5)
	assert.Len(t, sheets[1], 2+5, "exactly the ceiling in the last file, never an empty trailer")
}

func TestRunZeroMatchesProducesHeaderOnlyFile(t *testing.T) {
	cat := newFakeCatalog(nil)
	e := testExporter(cat, Config{PageSize: 2, Workers: 2, FileCeiling: 5, RowWindow: 4, Prefix: "assets"})

	res, err := e.Run(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, 1, res.Files)
	rows := sheetRows(t, res.Data)
	assert.Len(t, rows, 2, "group and header rows only")
}

func TestRunSelectiveColumns(t *testing.T) {
	cat := newFakeCatalog(makeRecords(2))
	e := testExporter(cat, Config{PageSize: 10, Workers: 2, FileCeiling: 100, RowWindow: 10, Prefix: "assets"})

	res, err := e.Run(context.Background(), Request{Columns: []string{"contentId", "mainTitle"}})
	require.NoError(t, err)

	rows := sheetRows(t, res.Data)
	require.Len(t, rows, 1+2, "no group-header row in selective mode")
	assert.Equal(t, []string{"Content ID", "Main Title"}, rows[0])
	assert.Equal(t, []string{"ast-0000", "Title 0"}, rows[1])
	assert.Equal(t, []string{"ast-0001", "Title 1"}, rows[2])
}

func TestRunSelectiveUnknownColumnFallsBack(t *testing.T) {
	records := makeRecords(1)
	records[0].Attributes["shelfCode"] = "B-17"
	cat := newFakeCatalog(records)
	e := testExporter(cat, Config{PageSize: 10, Workers: 2, FileCeiling: 100, RowWindow: 10, Prefix: "assets"})

	res, err := e.Run(context.Background(), Request{Columns: []string{"shelfCode", "contentId"}})
	require.NoError(t, err)

	rows := sheetRows(t, res.Data)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"shelfCode", "Content ID"}, rows[0], "unknown key keeps the key as label")
	assert.Equal(t, []string{"B-17", "ast-0000"}, rows[1])
}

func TestRunSingleSnapshotAcrossFetchLoop(t *testing.T) {
	// Both records carry the same window; a drifting clock would classify
	// them differently between rounds.
	records := makeRecords(4)
	for i := range records {
		records[i].LicenseWindows = []catalog.Window{{Start: "2024-06-01", End: "2024-12-31"}}
	}
	cat := newFakeCatalog(records)
	e := testExporter(cat, Config{PageSize: 1, Workers: 1, FileCeiling: 100, RowWindow: 10, Prefix: "assets"})

	base := time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC)
	calls := 0
	e.now = func() time.Time {
		calls++
		// Every later call would land past the window start.
		return base.Add(time.Duration(calls-1) * 48 * time.Hour)
	}

	res, err := e.Run(context.Background(), Request{Columns: []string{"futureLicenseWindows"}})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "snapshot instant is captured exactly once")

	rows := sheetRows(t, res.Data)
	require.Len(t, rows, 1+4)
	for _, row := range rows[1:] {
		assert.Equal(t, "2024-06-01;2024-12-31", row[0])
	}
}

func TestRunIdempotentWithoutTimeFields(t *testing.T) {
	records := makeRecords(6)
	cat := newFakeCatalog(records)
	cfg := Config{PageSize: 2, Workers: 2, FileCeiling: 100, RowWindow: 4, Prefix: "assets"}

	run := func() [][]string {
		res, err := testExporter(cat, cfg).Run(context.Background(), Request{Columns: []string{"contentId", "mainTitle"}})
		require.NoError(t, err)
		return sheetRows(t, res.Data)
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestRunCountFailureAborts(t *testing.T) {
	cat := newFakeCatalog(makeRecords(3))
	cat.countErr = fmt.Errorf("catalog unavailable")
	e := testExporter(cat, Config{PageSize: 2, Workers: 2, FileCeiling: 100, RowWindow: 10, Prefix: "assets"})

	res, err := e.Run(context.Background(), Request{})
	require.Error(t, err)
	assert.Nil(t, res, "no partial artifact on failure")
}

func TestRunPageFailureAborts(t *testing.T) {
	cat := newFakeCatalog(makeRecords(50))
	cat.failAt = 8
	e := testExporter(cat, Config{PageSize: 4, Workers: 2, FileCeiling: 100, RowWindow: 10, Prefix: "assets"})

	res, err := e.Run(context.Background(), Request{})
	require.Error(t, err)
	assert.Nil(t, res)
}
