// Package export writes aggregate report tables to spreadsheet and
// delimited-text artifacts.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"cmpfetch/cli/internal/table"
)

// xlsxSheet is the sheet name report data lands on.
const xlsxSheet = "Sheet1"

// WriteXLSX writes the table to an Excel workbook with a header row.
func WriteXLSX(path string, t table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for col, name := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheet, cell, name); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for col, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(xlsxSheet, cell, cellValue(value)); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// WriteCSV writes the table as comma-separated text with a header row.
func WriteCSV(path string, t table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = FormatCell(value)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// cellValue maps typed values to what the spreadsheet library stores
// natively; nested lists fall back to their JSON text.
func cellValue(v any) any {
	switch x := v.(type) {
	case []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return v
	}
}

// FormatCell renders one typed cell as text. Null cells become empty
// strings, timestamps ISO-8601.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format("2006-01-02T15:04:05")
	case []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}
