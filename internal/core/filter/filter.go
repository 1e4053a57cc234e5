package filter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"headline-sft/internal/core/dataset"
	"headline-sft/internal/core/tokenizer"
	"headline-sft/internal/core/utils"

	"github.com/schollz/progressbar/v3"
)

const (
	DefaultMinTokens = 200
	DefaultMaxTokens = 4096
	DefaultWorkers   = 14
)

type Options struct {
	// MinTokens is the lower bound; zero keeps every short record, so callers
	// wanting the usual window pass DefaultMinTokens.
	MinTokens    int
	// MaxTokens is the upper bound; zero means DefaultMaxTokens.
	MaxTokens    int
	Workers      int
	NewTokenizer tokenizer.Factory
	ShowProgress bool
}

func (o Options) withDefaults() Options {
	if o.MinTokens < 0 {
		o.MinTokens = 0
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}

// Keep reports whether a token count is inside [MinTokens, MaxTokens].
func (o Options) Keep(n int) bool {
	return o.MinTokens <= n && n < o.MaxTokens+1
}

type Summary struct {
	Total     int
	Kept      int
	TooShort  int
	TooLong   int
	Malformed int
	MinLen    int
	MaxLen    int
	MeanLen   float64
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", s.Total),
		slog.Int("kept", s.Kept),
		slog.Int("too_short", s.TooShort),
		slog.Int("too_long", s.TooLong),
		slog.Int("malformed", s.Malformed),
		slog.Int("min_len", s.MinLen),
		slog.Int("max_len", s.MaxLen),
		slog.Float64("mean_len", s.MeanLen),
	)
}

// Run tokenizes every record of in and writes the ones whose token count is in
// range to out. Output order follows input order regardless of worker count.
// Lines that cannot be decoded are logged and left out.
func Run(in io.Reader, out io.Writer, opts Options) (Summary, error) {
	opts = opts.withDefaults()
	if opts.NewTokenizer == nil {
		return Summary{}, fmt.Errorf("no tokenizer configured")
	}
	if opts.MinTokens > opts.MaxTokens {
		return Summary{}, fmt.Errorf("min tokens %d is greater than max tokens %d", opts.MinTokens, opts.MaxTokens)
	}

	var summary Summary

	reader := dataset.NewReader(in)
	var records []dataset.Record
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var lineErr *dataset.LineError
		if errors.As(err, &lineErr) {
			slog.Warn("skipping malformed record", "line", lineErr.Line, "error", lineErr.Err)
			summary.Malformed++
			continue
		}
		if err != nil {
			return summary, err
		}
		records = append(records, rec)
	}
	summary.Total = len(records) + summary.Malformed

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Example.Text()
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.NewOptions(len(texts),
			progressbar.OptionSetDescription("tokenizing"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}

	worker := func(tk tokenizer.Tokenizer, text string) (int, error) {
		n := tk.Count(text)
		if bar != nil {
			_ = bar.Add(1)
		}
		return n, nil
	}
	release := func(tk tokenizer.Tokenizer) {
		if err := tk.Close(); err != nil {
			slog.Warn("error closing tokenizer", "error", err)
		}
	}

	completed := make(chan utils.CompletedTask[int], len(texts))
	utils.RunInPoolWithState(opts.NewTokenizer, release, worker, utils.QueueOf(texts), completed, opts.Workers)
	lengths := utils.CollectOrdered(completed, len(texts))

	if bar != nil {
		_ = bar.Finish()
	}

	w := dataset.NewWriter(out, dataset.WrapperConversations)
	total := 0
	for i, res := range lengths {
		if res.Error != nil {
			return summary, fmt.Errorf("error tokenizing record on line %d: %w", records[i].Line, res.Error)
		}
		n := res.Result

		if i == 0 || n < summary.MinLen {
			summary.MinLen = n
		}
		summary.MaxLen = max(summary.MaxLen, n)
		total += n

		switch {
		case n < opts.MinTokens:
			summary.TooShort++
		case !opts.Keep(n):
			summary.TooLong++
		default:
			line, err := dataset.EncodeRecord(records[i].Example, records[i].Wrapper)
			if err != nil {
				return summary, err
			}
			if err := w.WriteLine(line); err != nil {
				return summary, err
			}
			summary.Kept++
		}
	}
	if len(lengths) > 0 {
		summary.MeanLen = float64(total) / float64(len(lengths))
	}

	if err := w.Flush(); err != nil {
		return summary, fmt.Errorf("error flushing filtered dataset: %w", err)
	}

	return summary, nil
}
