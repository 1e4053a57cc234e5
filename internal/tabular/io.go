package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// Read loads a .csv or .xlsx file. Only the first sheet of a workbook is read.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	var t *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		t, err = ReadXLSX(f)
	case ".csv", "":
		t, err = ReadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return t, nil
}

func fromRecords(records [][]string) *Table {
	if len(records) == 0 {
		return New(nil)
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		header[i] = strings.TrimSpace(col)
	}

	t := &Table{Columns: header, Rows: records[1:]}
	t.buildIndex()
	return t
}

func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error parsing csv: %w", err)
	}
	return fromRecords(records), nil
}

func ReadXLSX(r io.Reader) (*Table, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return New(nil), nil
	}
	records, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %s: %w", sheets[0], err)
	}
	return fromRecords(records), nil
}

// Write saves the table as .xlsx or as a UTF-8 CSV with a byte order mark, so
// spreadsheet tools detect the encoding.
func Write(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	if strings.ToLower(filepath.Ext(path)) == ".xlsx" {
		return WriteXLSX(path, t)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, t, true); err != nil {
		return err
	}
	return f.Close()
}

func WriteCSV(w io.Writer, t *Table, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("error writing csv: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}
	for i := range t.Rows {
		record := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			record[j] = t.Get(i, col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(path string, t *Table) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	writeRow := func(row int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return book.SetSheetRow(sheet, cell, &cells)
	}

	if err := writeRow(1, t.Columns); err != nil {
		return fmt.Errorf("error writing xlsx header: %w", err)
	}
	for i := range t.Rows {
		values := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			values[j] = t.Get(i, col)
		}
		if err := writeRow(i+2, values); err != nil {
			return fmt.Errorf("error writing xlsx row %d: %w", i, err)
		}
	}

	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("error saving %s: %w", path, err)
	}
	return nil
}
