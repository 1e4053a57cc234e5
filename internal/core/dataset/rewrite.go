package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

type RewriteOptions struct {
	// Wrapper forces every record to one wrapper; empty keeps each record's own.
	Wrapper Wrapper
	// Normalize drops empty turns and adds DefaultSystem when a record has no
	// system turn.
	Normalize     bool
	DefaultSystem string
}

type RewriteSummary struct {
	Records    int
	Skipped    int
	Unlabelled int
}

func (s RewriteSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("records", s.Records),
		slog.Int("skipped", s.Skipped),
		slog.Int("unlabelled", s.Unlabelled),
	)
}

// Rewrite re-encodes every record of in as a single JSON object per line.
// Double encoded lines are unwrapped, undecodable lines are logged and dropped.
func Rewrite(in io.Reader, out io.Writer, opts RewriteOptions) (RewriteSummary, error) {
	if opts.DefaultSystem == "" {
		opts.DefaultSystem = DefaultSystemPrompt
	}

	reader := NewReader(in)
	writer := NewWriter(out, WrapperConversations)

	var summary RewriteSummary
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var lineErr *LineError
		if errors.As(err, &lineErr) {
			slog.Warn("skipping malformed record", "line", lineErr.Line, "error", lineErr.Err)
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, err
		}

		example := rec.Example
		if opts.Normalize {
			example = Normalize(example, opts.DefaultSystem)
		}
		if example.Assistant() == "" {
			summary.Unlabelled++
		}

		wrapper := rec.Wrapper
		if opts.Wrapper != "" {
			wrapper = opts.Wrapper
		}

		line, err := EncodeRecord(example, wrapper)
		if err != nil {
			return summary, fmt.Errorf("error encoding record on line %d: %w", rec.Line, err)
		}
		if err := writer.WriteLine(line); err != nil {
			return summary, err
		}
	}

	if err := writer.Flush(); err != nil {
		return summary, fmt.Errorf("error flushing records: %w", err)
	}
	summary.Records = writer.Count()
	return summary, nil
}
