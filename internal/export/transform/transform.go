// Package transform turns one raw catalog record into a flat row of
// rendered cell values.
package transform

import (
	"time"

	"catalog-export/internal/catalog"
	"catalog-export/internal/common/metrics"
	"catalog-export/internal/export/fields"
)

// Row transforms one record against the resolved column list. The result
// is positionally aligned with columns, so columns[i].Key names cells[i].
//
// Row never fails: malformed nested data degrades to an empty string or a
// partial joined list, and the anomaly is counted per field.
func Row(rec *catalog.AssetRecord, columns []fields.Descriptor, snapshot time.Time) []string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = renderCell(rec, col, snapshot)
	}
	return cells
}

func renderCell(rec *catalog.AssetRecord, col fields.Descriptor, snapshot time.Time) (cell string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.FieldAnomalies.WithLabelValues(col.Key).Inc()
			cell = ""
		}
	}()
	if col.Render == nil {
		return ""
	}
	return col.Render(rec, snapshot)
}
