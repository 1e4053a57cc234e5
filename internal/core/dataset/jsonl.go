package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"headline-sft/internal/core/types"
)

type Wrapper string

const (
	WrapperConversations Wrapper = "conversations"
	WrapperMessages      Wrapper = "messages"
)

func ParseWrapper(s string) (Wrapper, error) {
	switch Wrapper(s) {
	case WrapperConversations, WrapperMessages:
		return Wrapper(s), nil
	case "":
		return WrapperConversations, nil
	default:
		return "", fmt.Errorf("unknown record wrapper %q", s)
	}
}

// maxDecodeDepth bounds how many times a JSON string holding JSON is unwrapped.
const maxDecodeDepth = 4

// maxLineSize is the largest record a line-delimited store may hold.
const maxLineSize = 64 * 1024 * 1024

var ErrNoTurns = errors.New("record has no conversations or messages")

type record struct {
	Conversations []types.Turn `json:"conversations"`
	Messages      []types.Turn `json:"messages"`
}

// DecodeRecord decodes one line of a record store. Lines that were encoded
// twice (a JSON string containing the JSON object) are unwrapped until an
// object is reached.
func DecodeRecord(line []byte) (types.ConversationExample, Wrapper, error) {
	data := bytes.TrimSpace(line)
	for depth := 0; depth < maxDecodeDepth; depth++ {
		if len(data) > 0 && data[0] == '"' {
			var inner string
			if err := json.Unmarshal(data, &inner); err != nil {
				return types.ConversationExample{}, "", fmt.Errorf("error decoding encoded record: %w", err)
			}
			data = bytes.TrimSpace([]byte(inner))
			continue
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return types.ConversationExample{}, "", fmt.Errorf("error decoding record: %w", err)
		}
		switch {
		case rec.Conversations != nil:
			return types.ConversationExample{Turns: rec.Conversations}, WrapperConversations, nil
		case rec.Messages != nil:
			return types.ConversationExample{Turns: rec.Messages}, WrapperMessages, nil
		default:
			return types.ConversationExample{}, "", ErrNoTurns
		}
	}
	return types.ConversationExample{}, "", fmt.Errorf("record still encoded after %d decode passes", maxDecodeDepth)
}

// EncodeRecord returns the single-line JSON form of an example, without a
// trailing newline.
func EncodeRecord(example types.ConversationExample, wrapper Wrapper) ([]byte, error) {
	turns := example.Turns
	if turns == nil {
		turns = []types.Turn{}
	}
	if wrapper != WrapperMessages {
		wrapper = WrapperConversations
	}
	rec := map[Wrapper][]types.Turn{wrapper: turns}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("error encoding record: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Writer appends examples to a line-delimited record store.
type Writer struct {
	w       *bufio.Writer
	wrapper Wrapper
	count   int
}

func NewWriter(w io.Writer, wrapper Wrapper) *Writer {
	return &Writer{w: bufio.NewWriter(w), wrapper: wrapper}
}

func (w *Writer) Write(example types.ConversationExample) error {
	line, err := EncodeRecord(example, w.wrapper)
	if err != nil {
		return err
	}
	return w.WriteLine(line)
}

// WriteLine appends an already encoded record.
func (w *Writer) WriteLine(line []byte) error {
	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("error writing record: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("error writing record: %w", err)
	}
	w.count++
	return nil
}

func (w *Writer) Count() int {
	return w.count
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}

type Record struct {
	Line    int
	Raw     []byte
	Example types.ConversationExample
	Wrapper Wrapper
}

// LineError reports a line that could not be decoded. Reading can continue
// past it.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

type Reader struct {
	scanner *bufio.Scanner
	line    int
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next non-blank record. It returns io.EOF at the end of the
// input and a *LineError for a line that cannot be decoded.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		raw = bytes.Clone(raw)

		example, wrapper, err := DecodeRecord(raw)
		if err != nil {
			return Record{Line: r.line, Raw: raw}, &LineError{Line: r.line, Err: err}
		}
		return Record{Line: r.line, Raw: raw, Example: example, Wrapper: wrapper}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("error reading records: %w", err)
	}
	return Record{}, io.EOF
}
