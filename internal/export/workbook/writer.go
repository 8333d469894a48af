// Package workbook writes export rows into a spreadsheet with bounded
// memory.
package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"catalog-export/internal/export/fields"
)

const sheetName = "Assets"

// group header fill colors, cycled in group order
var groupPalette = []string{
	"DDEBF7", "E2EFDA", "FFF2CC", "FCE4D6", "D9E1F2", "EDEDED", "F2DCDB", "E4DFEC",
}

// Writer streams rows for one spreadsheet file. A fixed-size window of
// pending rows is kept in memory so the final data row can take the heavy
// terminator border before it is flushed; everything older is already on
// the stream. Styles and sheet handles are scoped to this file and must
// not be reused across files.
type Writer struct {
	file       *excelize.File
	sw         *excelize.StreamWriter
	columns    []fields.Descriptor
	grouped    bool
	windowSize int

	window  [][]string
	nextRow int
	rows    int

	headerStyle int
	dataStyle   int
	lastStyle   int
	groupStyles map[string]int

	finalized bool
}

// New creates a writer for one file. grouped controls whether the merged
// group-header row is emitted; selective exports pass false.
func New(columns []fields.Descriptor, grouped bool, windowSize int) (*Writer, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("workbook: no columns")
	}
	if windowSize < 1 {
		return nil, fmt.Errorf("workbook: window size must be positive")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	w := &Writer{
		file:       f,
		columns:    columns,
		grouped:    grouped,
		windowSize: windowSize,
		nextRow:    1,
	}
	if err := w.initStyles(); err != nil {
		f.Close()
		return nil, err
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.sw = sw

	if err := sw.SetColWidth(1, len(columns), 24); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) initStyles() error {
	thin := []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}

	var err error
	w.headerStyle, err = w.file.NewStyle(&excelize.Style{
		Border: thin,
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"BFBFBF"}},
	})
	if err != nil {
		return err
	}

	w.dataStyle, err = w.file.NewStyle(&excelize.Style{Border: thin})
	if err != nil {
		return err
	}

	// Heavier bottom border marks the last row of a file.
	w.lastStyle, err = w.file.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Style: 1, Color: "000000"},
			{Type: "right", Style: 1, Color: "000000"},
			{Type: "top", Style: 1, Color: "000000"},
			{Type: "bottom", Style: 2, Color: "000000"},
		},
	})
	if err != nil {
		return err
	}

	w.groupStyles = make(map[string]int)
	if !w.grouped {
		return nil
	}
	next := 0
	for _, col := range w.columns {
		if _, ok := w.groupStyles[col.Group]; ok {
			continue
		}
		color := groupPalette[next%len(groupPalette)]
		next++
		id, err := w.file.NewStyle(&excelize.Style{
			Border:    thin,
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		})
		if err != nil {
			return err
		}
		w.groupStyles[col.Group] = id
	}
	return nil
}

// WriteHeader emits the optional group-header row followed by the
// column-header row, both in column order.
func (w *Writer) WriteHeader() error {
	if w.grouped {
		if err := w.writeGroupRow(); err != nil {
			return err
		}
	}

	cells := make([]interface{}, len(w.columns))
	for i, col := range w.columns {
		cells[i] = excelize.Cell{StyleID: w.headerStyle, Value: col.Label}
	}
	if err := w.setRow(w.nextRow, cells); err != nil {
		return err
	}
	w.nextRow++
	return nil
}

// writeGroupRow emits one merged, colored cell per contiguous group span.
func (w *Writer) writeGroupRow() error {
	cells := make([]interface{}, len(w.columns))
	for i, col := range w.columns {
		style := w.groupStyles[col.Group]
		if i == 0 || w.columns[i-1].Group != col.Group {
			cells[i] = excelize.Cell{StyleID: style, Value: col.Group}
		} else {
			cells[i] = excelize.Cell{StyleID: style}
		}
	}
	if err := w.setRow(w.nextRow, cells); err != nil {
		return err
	}

	start := 0
	for i := 1; i <= len(w.columns); i++ {
		if i < len(w.columns) && w.columns[i].Group == w.columns[start].Group {
			continue
		}
		if i-start > 1 {
			from, _ := excelize.CoordinatesToCellName(start+1, w.nextRow)
			to, _ := excelize.CoordinatesToCellName(i, w.nextRow)
			if err := w.sw.MergeCell(from, to); err != nil {
				return err
			}
		}
		start = i
	}

	w.nextRow++
	return nil
}

// WriteRow buffers one data row. Once the window is full the oldest row is
// flushed to the stream, so memory stays bounded by the window size.
func (w *Writer) WriteRow(cells []string) error {
	if len(cells) != len(w.columns) {
		return fmt.Errorf("workbook: row has %d cells, want %d", len(cells), len(w.columns))
	}

	if len(w.window) == w.windowSize {
		if err := w.flushRow(w.window[0], w.dataStyle); err != nil {
			return err
		}
		w.window = w.window[1:]
	}
	w.window = append(w.window, cells)
	w.rows++
	return nil
}

// Rows returns the number of data rows accepted so far.
func (w *Writer) Rows() int {
	return w.rows
}

// Finalize drains the window (the last row takes the terminator style),
// flushes the stream, and returns the finished file bytes. The writer is
// unusable afterwards.
func (w *Writer) Finalize() ([]byte, error) {
	if w.finalized {
		return nil, fmt.Errorf("workbook: already finalized")
	}
	w.finalized = true
	defer w.file.Close()

	for i, row := range w.window {
		style := w.dataStyle
		if i == len(w.window)-1 {
			style = w.lastStyle
		}
		if err := w.flushRow(row, style); err != nil {
			return nil, err
		}
	}
	w.window = nil

	if err := w.sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Writer) flushRow(row []string, style int) error {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = excelize.Cell{StyleID: style, Value: v}
	}
	if err := w.setRow(w.nextRow, cells); err != nil {
		return err
	}
	w.nextRow++
	return nil
}

func (w *Writer) setRow(rowNum int, cells []interface{}) error {
	ref, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return w.sw.SetRow(ref, cells)
}
