package tabular_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"headline-sft/internal/core/types"
	"headline-sft/internal/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffid,type,title,lead,content\n" +
		"1,du lịch,Tiêu đề,Lead,\"<p>Nội dung, có dấu phẩy</p>\"\n" +
		"2,,NaN,nan\n"

	table, err := tabular.ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "type", "title", "lead", "content"}, table.Columns)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "<p>Nội dung, có dấu phẩy</p>", table.Get(0, "content"))

	// NaN placeholders and cells missing from a short row read as empty.
	assert.Equal(t, "", table.Get(1, "title"))
	assert.Equal(t, "", table.Get(1, "lead"))
	assert.Equal(t, "", table.Get(1, "content"))
	assert.Equal(t, "", table.Get(0, "missing"))

	assert.Equal(t, []types.ArticleRecord{
		{ID: "1", Style: "du lịch", Title: "Tiêu đề", Lead: "Lead", Content: "<p>Nội dung, có dấu phẩy</p>"},
		{ID: "2"},
	}, table.Articles())
}

func TestArticlesStyleColumn(t *testing.T) {
	table, err := tabular.ReadCSV(strings.NewReader("style,content\nkhoa học công nghệ,C\n"))
	require.NoError(t, err)
	assert.Equal(t, "khoa học công nghệ", table.Articles()[0].Style)
}

func TestRequire(t *testing.T) {
	table := tabular.New([]string{"title", "content"})

	assert.NoError(t, table.Require("title", "content"))

	err := table.Require("title", "lead", "output_lead")
	assert.ErrorIs(t, err, tabular.ErrMissingColumn)
	assert.ErrorContains(t, err, "lead, output_lead")
}

func TestSetAddsColumns(t *testing.T) {
	table := tabular.New([]string{"content"})
	table.Append(map[string]string{"content": "C"})

	table.Set(0, "output_lead", "L")
	table.Set(0, "output_title", "T")

	assert.Equal(t, []string{"content", "output_lead", "output_title"}, table.Columns)
	assert.Equal(t, "L", table.Get(0, "output_lead"))
	assert.Equal(t, "T", table.Get(0, "output_title"))
}

func TestWriteCSVWithBOM(t *testing.T) {
	table := tabular.New([]string{"title", "lead"})
	table.Append(map[string]string{"title": "Hà Nội", "lead": "Dòng 1\nDòng 2"})

	buf := new(bytes.Buffer)
	require.NoError(t, tabular.WriteCSV(buf, table, true))
	assert.True(t, strings.HasPrefix(buf.String(), "\ufefftitle,lead\n"))

	back, err := tabular.ReadCSV(buf)
	require.NoError(t, err)
	assert.Equal(t, table.Columns, back.Columns)
	assert.Equal(t, "Dòng 1\nDòng 2", back.Get(0, "lead"))
}

func TestReadWriteFiles(t *testing.T) {
	dir := t.TempDir()

	table := tabular.New([]string{"id", "title", "content"})
	table.Append(map[string]string{"id": "1", "title": "Tiêu đề", "content": "Nội dung"})
	table.Append(map[string]string{"id": "2", "content": "Chỉ có nội dung"})

	for _, name := range []string{"articles.csv", "articles.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			require.NoError(t, tabular.Write(path, table))

			back, err := tabular.Read(path)
			require.NoError(t, err)

			assert.Equal(t, table.Columns, back.Columns)
			assert.Equal(t, 2, back.Len())
			assert.Equal(t, "Tiêu đề", back.Get(0, "title"))
			assert.Equal(t, "", back.Get(1, "title"))
			assert.Equal(t, "Chỉ có nội dung", back.Get(1, "content"))
		})
	}
}

func TestReadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := tabular.Read(path)
	assert.Error(t, err)
}
