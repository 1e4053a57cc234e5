package inference

import (
	"context"
	"log/slog"

	"headline-sft/internal/core/cleaner"
	"headline-sft/internal/core/prompts"
	"headline-sft/internal/core/types"

	"github.com/schollz/progressbar/v3"
)

// Cache holds outputs of earlier successful requests.
type Cache interface {
	Lookup(ctx context.Context, task types.Task, style, model string, pair types.PromptPair) (string, bool, error)
	Store(ctx context.Context, task types.Task, style, model string, pair types.PromptPair, output string) error
}

type Generation struct {
	Lead  string
	Title string
}

type BatchOptions struct {
	Cache        Cache
	ShowProgress bool
}

type BatchSummary struct {
	Rows      int
	Requests  int
	CacheHits int
	Failures  int
}

func (s BatchSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("rows", s.Rows),
		slog.Int("requests", s.Requests),
		slog.Int("cache_hits", s.CacheHits),
		slog.Int("failures", s.Failures),
	)
}

// Batch generates a lead and then a title for every article. The title prompt
// is built from the generated lead and the article content. Failed generations
// hold an error marker; Batch itself only fails when ctx is cancelled, returning
// the generations finished so far.
func (c *Client) Batch(ctx context.Context, articles []types.ArticleRecord, opts BatchOptions) ([]Generation, BatchSummary, error) {
	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.NewOptions(len(articles),
			progressbar.OptionSetDescription("generating"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}

	summary := BatchSummary{}
	generations := make([]Generation, 0, len(articles))

	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return generations, summary, err
		}

		style := types.NormalizeStyle(article.Style)
		content := cleaner.Clean(article.Content)

		lead, leadOK := c.generateCached(ctx, types.TaskLead, style, prompts.Fields{Content: content}, opts.Cache, &summary)

		titleLead := lead
		if !leadOK {
			titleLead = ""
		}
		title, _ := c.generateCached(ctx, types.TaskTitle, style, prompts.Fields{Lead: titleLead, Content: content}, opts.Cache, &summary)

		generations = append(generations, Generation{Lead: lead, Title: title})
		summary.Rows++

		slog.Debug("generated row", "row", i+1, "total", len(articles), "style", style, "lead_len", len([]rune(lead)), "title", title)
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	return generations, summary, nil
}

func (c *Client) generateCached(ctx context.Context, task types.Task, style string, fields prompts.Fields, cache Cache, summary *BatchSummary) (string, bool) {
	pair, err := prompts.Build(task, style, fields)
	if err != nil {
		summary.Failures++
		return ErrorMarker(task, err), false
	}

	if cache != nil {
		out, ok, err := cache.Lookup(ctx, task, style, c.opts.Model, pair)
		if err != nil {
			slog.Warn("generation cache lookup failed", "task", task, "error", err)
		} else if ok {
			summary.CacheHits++
			return out, true
		}
	}

	summary.Requests++
	out := c.Generate(ctx, task, pair)
	if IsErrorMarker(out) {
		summary.Failures++
		return out, false
	}

	if cache != nil {
		if err := cache.Store(ctx, task, style, c.opts.Model, pair, out); err != nil {
			slog.Warn("error caching generation", "task", task, "error", err)
		}
	}
	return out, true
}
