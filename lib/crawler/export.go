package crawler

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{"time", "entity_id", "attribute", "url", "exception"}

// Export serializes the log to the given path without mutating or clearing
// it. The extension selects the format: .gob is an opaque binary table,
// .xlsx a spreadsheet, .csv delimited text. Anything else is a validation
// error returned to the caller. On success the path is returned.
func (l *Log) Export(path string) (string, error) {
	records := l.Records()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		err = exportGob(path, records)
	case ".xlsx":
		err = exportXlsx(path, records)
	case ".csv":
		err = exportCsv(path, records)
	default:
		return "", fmt.Errorf(
			"output filename must specify a binary table (.gob), spreadsheet (.xlsx) or csv (.csv) file, got %q",
			filepath.Base(path),
		)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func exportGob(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(records); err != nil {
		f.Close()
		return fmt.Errorf("encode error records: %w", err)
	}
	return f.Close()
}

func exportCsv(path string, records []Record) error {
	t := table.NewWriter()
	t.AppendHeader(rowOf(exportColumns))
	for _, r := range records {
		t.AppendRow(table.Row{
			r.Time.Format(TimeFormat),
			r.EntityID,
			r.Attribute,
			r.URL,
			r.Exception,
		})
	}
	return os.WriteFile(path, []byte(t.RenderCSV()+"\n"), 0o644)
}

func exportXlsx(path string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{
		exportColumns[0], exportColumns[1], exportColumns[2],
		exportColumns[3], exportColumns[4],
	}); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	for i, r := range records {
		cell := fmt.Sprintf("A%d", i+2)
		err := f.SetSheetRow(sheet, cell, &[]any{
			r.Time.Format(TimeFormat),
			r.EntityID,
			r.Attribute,
			r.URL,
			r.Exception,
		})
		if err != nil {
			return fmt.Errorf("write record row %d: %w", i, err)
		}
	}
	return f.SaveAs(path)
}

func rowOf(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
