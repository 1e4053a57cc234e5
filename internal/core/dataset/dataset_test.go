package dataset_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"headline-sft/internal/core/dataset"
	"headline-sft/internal/core/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader) ([]dataset.Record, []*dataset.LineError) {
	t.Helper()
	reader := dataset.NewReader(r)
	var records []dataset.Record
	var lineErrs []*dataset.LineError
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var lineErr *dataset.LineError
		if errors.As(err, &lineErr) {
			lineErrs = append(lineErrs, lineErr)
			continue
		}
		require.NoError(t, err)
		records = append(records, rec)
	}
	return records, lineErrs
}

func TestBuildOneExamplePerTask(t *testing.T) {
	articles := []types.ArticleRecord{
		{ID: "1", Style: "đời sống", Title: "Tiêu đề 1", Lead: "Lead 1", Content: "<p>Nội dung 1</p>"},
		{ID: "2", Style: "", Title: "Tiêu đề 2", Lead: "Lead 2", Content: "<script>x</script>"},
		{ID: "3", Style: "du lịch", Title: "Tiêu đề 3", Lead: "Lead 3", Content: "Nội dung 3"},
	}

	buf := new(bytes.Buffer)
	w := dataset.NewWriter(buf, dataset.WrapperConversations)

	summary, err := dataset.Build(articles, w, dataset.BuildOptions{Tasks: []types.Task{types.TaskTitle, types.TaskLead}})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 4, summary.Examples)
	assert.Equal(t, 2, summary.PerTask[types.TaskTitle])
	assert.Equal(t, 2, summary.PerTask[types.TaskLead])

	records, lineErrs := readAll(t, buf)
	require.Empty(t, lineErrs)
	require.Len(t, records, 4)

	for _, rec := range records {
		require.NoError(t, rec.Example.Validate())
		systems := 0
		for _, turn := range rec.Example.Turns {
			if turn.Role == types.RoleSystem {
				systems++
			}
		}
		assert.Equal(t, 1, systems)
	}

	assert.Contains(t, records[0].Example.Turns[0].Content, "[TASK=title]")
	assert.Equal(t, "Tiêu đề 1", records[0].Example.Assistant())
	assert.Contains(t, records[1].Example.Turns[0].Content, "[TASK=lead]")
	assert.Equal(t, "Lead 1", records[1].Example.Assistant())
	assert.Contains(t, records[2].Example.Turns[0].Content, "[STYLE=du lịch]")
}

func TestBuildWithoutLabels(t *testing.T) {
	buf := new(bytes.Buffer)
	w := dataset.NewWriter(buf, dataset.WrapperMessages)

	_, err := dataset.Build(
		[]types.ArticleRecord{{ID: "1", Title: "T", Lead: "L", Content: "C"}},
		w,
		dataset.BuildOptions{Tasks: []types.Task{types.TaskGeneral}, WithoutLabels: true},
	)
	require.NoError(t, err)

	records, _ := readAll(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, dataset.WrapperMessages, records[0].Wrapper)
	assert.Equal(t, "", records[0].Example.Assistant())
}

func TestBuildRejectsUnknownTask(t *testing.T) {
	w := dataset.NewWriter(io.Discard, dataset.WrapperConversations)
	_, err := dataset.Build(nil, w, dataset.BuildOptions{Tasks: []types.Task{"summary"}})
	assert.ErrorIs(t, err, types.ErrUnknownTask)
}

func TestLabel(t *testing.T) {
	article := types.ArticleRecord{Title: " T ", Lead: " L "}

	label, err := dataset.Label(types.TaskTitle, article)
	require.NoError(t, err)
	assert.Equal(t, "T", label)

	label, err = dataset.Label(types.TaskLead, article)
	require.NoError(t, err)
	assert.Equal(t, "L", label)

	label, err = dataset.Label(types.TaskGeneral, article)
	require.NoError(t, err)
	assert.Equal(t, "T\nL", label)
}

func TestRecordRoundTrip(t *testing.T) {
	example := dataset.Compose(types.PromptPair{System: "hệ thống <b>", User: "người dùng & \"trích dẫn\""}, "nhãn")

	for _, wrapper := range []dataset.Wrapper{dataset.WrapperConversations, dataset.WrapperMessages} {
		buf := new(bytes.Buffer)
		w := dataset.NewWriter(buf, wrapper)
		require.NoError(t, w.Write(example))
		require.NoError(t, w.Flush())

		assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
		assert.Contains(t, buf.String(), "<b>")

		records, lineErrs := readAll(t, buf)
		require.Empty(t, lineErrs)
		require.Len(t, records, 1)
		assert.Equal(t, example, records[0].Example)
		assert.Equal(t, wrapper, records[0].Wrapper)
	}
}

func TestDecodeDoubleEncoded(t *testing.T) {
	example := dataset.Compose(types.PromptPair{System: "s", User: "u"}, "a")
	line, err := dataset.EncodeRecord(example, dataset.WrapperConversations)
	require.NoError(t, err)

	once, err := json.Marshal(string(line))
	require.NoError(t, err)
	twice, err := json.Marshal(string(once))
	require.NoError(t, err)

	for _, encoded := range [][]byte{line, once, twice} {
		decoded, wrapper, err := dataset.DecodeRecord(encoded)
		require.NoError(t, err)
		assert.Equal(t, example, decoded)
		assert.Equal(t, dataset.WrapperConversations, wrapper)
	}
}

func TestReaderContinuesPastMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"conversations":[{"role":"system","content":"s"}]}`,
		``,
		`{not json`,
		`{"other":1}`,
		`"{\"messages\":[{\"role\":\"user\",\"content\":\"u\"}]}"`,
	}, "\n")

	records, lineErrs := readAll(t, strings.NewReader(input))
	require.Len(t, records, 2)
	require.Len(t, lineErrs, 2)

	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, 5, records[1].Line)
	assert.Equal(t, dataset.WrapperMessages, records[1].Wrapper)
	assert.Equal(t, 3, lineErrs[0].Line)
	assert.Equal(t, 4, lineErrs[1].Line)
	assert.ErrorIs(t, lineErrs[1], dataset.ErrNoTurns)
}

func TestNormalize(t *testing.T) {
	example := types.ConversationExample{Turns: []types.Turn{
		{Role: types.RoleUser, Content: " hỏi "},
		{Role: types.RoleAssistant, Content: ""},
	}}

	normalized := dataset.Normalize(example, dataset.DefaultSystemPrompt)
	assert.Equal(t, []types.Turn{
		{Role: types.RoleSystem, Content: dataset.DefaultSystemPrompt},
		{Role: types.RoleUser, Content: "hỏi"},
	}, normalized.Turns)

	withSystem := dataset.Compose(types.PromptPair{System: "s", User: "u"}, "a")
	assert.Equal(t, withSystem, dataset.Normalize(withSystem, dataset.DefaultSystemPrompt))
}

func TestRewrite(t *testing.T) {
	labelled := `{"conversations":[{"role":"system","content":"s"},{"role":"user","content":"u"},{"role":"assistant","content":"a"}]}`
	doubled, err := json.Marshal(labelled)
	require.NoError(t, err)

	input := strings.Join([]string{
		string(doubled),
		`{not json`,
		`{"messages":[{"role":"user","content":" u2 "},{"role":"assistant","content":""}]}`,
	}, "\n")

	t.Run("keeps wrappers", func(t *testing.T) {
		out := new(bytes.Buffer)
		summary, err := dataset.Rewrite(strings.NewReader(input), out, dataset.RewriteOptions{})
		require.NoError(t, err)
		assert.Equal(t, dataset.RewriteSummary{Records: 2, Skipped: 1, Unlabelled: 1}, summary)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, labelled, lines[0])
		assert.True(t, strings.HasPrefix(lines[1], `{"messages":`))
	})

	t.Run("normalizes into one wrapper", func(t *testing.T) {
		out := new(bytes.Buffer)
		summary, err := dataset.Rewrite(strings.NewReader(input), out, dataset.RewriteOptions{
			Wrapper:   dataset.WrapperConversations,
			Normalize: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Records)

		records, lineErrs := readAll(t, out)
		require.Empty(t, lineErrs)
		require.Len(t, records, 2)
		assert.Equal(t, dataset.WrapperConversations, records[1].Wrapper)
		assert.Equal(t, []types.Turn{
			{Role: types.RoleSystem, Content: dataset.DefaultSystemPrompt},
			{Role: types.RoleUser, Content: "u2"},
		}, records[1].Example.Turns)
	})
}
