package tabular

import (
	"errors"
	"fmt"
	"strings"

	"headline-sft/internal/core/types"
)

var ErrMissingColumn = errors.New("missing required column")

// Table is a header plus string rows. Cells that are absent in a short row
// read as empty strings.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

func New(columns []string) *Table {
	t := &Table{}
	for _, col := range columns {
		t.AddColumn(col)
	}
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		if _, ok := t.index[col]; !ok {
			t.index[col] = i
		}
	}
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) Has(col string) bool {
	if t.index == nil {
		t.buildIndex()
	}
	_, ok := t.index[col]
	return ok
}

// Require fails with ErrMissingColumn naming every absent column.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, col := range cols {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// AddColumn appends a column if it does not exist yet.
func (t *Table) AddColumn(col string) {
	if t.Has(col) {
		return
	}
	t.Columns = append(t.Columns, col)
	t.index[col] = len(t.Columns) - 1
}

// Get returns the cell, or "" when the column or cell is missing or holds a
// NaN placeholder.
func (t *Table) Get(row int, col string) string {
	if !t.Has(col) || row < 0 || row >= len(t.Rows) {
		return ""
	}
	i := t.index[col]
	if i >= len(t.Rows[row]) {
		return ""
	}
	return cleanCell(t.Rows[row][i])
}

// Set writes a cell, adding the column if needed.
func (t *Table) Set(row int, col, value string) {
	t.AddColumn(col)
	i := t.index[col]
	for len(t.Rows[row]) <= i {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][i] = value
}

// Append adds a row given as column -> value.
func (t *Table) Append(values map[string]string) {
	t.Rows = append(t.Rows, make([]string, len(t.Columns)))
	row := len(t.Rows) - 1
	for _, col := range t.Columns {
		if v, ok := values[col]; ok {
			t.Set(row, col, v)
		}
	}
}

// Articles maps rows to article records. The style comes from the "type"
// column, or "style" when there is no "type" column.
func (t *Table) Articles() []types.ArticleRecord {
	styleCol := "type"
	if !t.Has(styleCol) {
		styleCol = "style"
	}

	articles := make([]types.ArticleRecord, 0, len(t.Rows))
	for i := range t.Rows {
		articles = append(articles, types.ArticleRecord{
			ID:      t.Get(i, "id"),
			Style:   t.Get(i, styleCol),
			Title:   t.Get(i, "title"),
			Lead:    t.Get(i, "lead"),
			Content: t.Get(i, "content"),
		})
	}
	return articles
}

func cleanCell(s string) string {
	switch strings.TrimSpace(s) {
	case "NaN", "nan", "NAN":
		return ""
	}
	return s
}
