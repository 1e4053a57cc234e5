package dataset

import (
	"errors"
	"fmt"
	"log/slog"

	"headline-sft/internal/core/types"

	"github.com/schollz/progressbar/v3"
)

type Summary struct {
	Rows     int
	Examples int
	Skipped  int
	PerTask  map[types.Task]int
}

func (s Summary) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("rows", s.Rows),
		slog.Int("examples", s.Examples),
		slog.Int("skipped", s.Skipped),
	}
	for task, n := range s.PerTask {
		attrs = append(attrs, slog.Int(string(task), n))
	}
	return slog.GroupValue(attrs...)
}

type BuildOptions struct {
	Tasks []types.Task
	// WithoutLabels leaves the assistant turn empty, for examples used in live generation.
	WithoutLabels bool
	ShowProgress  bool
}

// Build cleans every article, composes one example per requested task and
// appends it to w. Articles whose cleaned content is empty are skipped and
// counted. Examples are written in article order, tasks in the order given.
func Build(articles []types.ArticleRecord, w *Writer, opts BuildOptions) (Summary, error) {
	if len(opts.Tasks) == 0 {
		return Summary{}, fmt.Errorf("%w: no tasks requested", types.ErrUnknownTask)
	}
	for _, task := range opts.Tasks {
		if _, err := types.ParseTask(string(task)); err != nil {
			return Summary{}, err
		}
	}

	summary := Summary{PerTask: make(map[types.Task]int)}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.NewOptions(len(articles),
			progressbar.OptionSetDescription("building examples"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, raw := range articles {
		summary.Rows++
		if bar != nil {
			_ = bar.Add(1)
		}

		article := CleanArticle(raw)

		for _, task := range opts.Tasks {
			example, err := ComposeExample(task, article, !opts.WithoutLabels)
			if errors.Is(err, ErrEmptyContent) {
				slog.Debug("skipping article with empty content", "id", article.ID)
				summary.Skipped++
				break
			}
			if err != nil {
				return summary, fmt.Errorf("error composing %s example for article %q: %w", task, article.ID, err)
			}

			if err := w.Write(example); err != nil {
				return summary, err
			}
			summary.Examples++
			summary.PerTask[task]++
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if err := w.Flush(); err != nil {
		return summary, fmt.Errorf("error flushing dataset: %w", err)
	}

	return summary, nil
}
