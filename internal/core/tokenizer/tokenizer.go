package tokenizer

import (
	"fmt"
	"os"
	"strings"

	"github.com/daulet/tokenizers"
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens. Implementations are not safe for concurrent use;
// every worker creates its own.
type Tokenizer interface {
	Count(text string) int
	Close() error
}

// Factory creates a fresh tokenizer instance.
type Factory func() (Tokenizer, error)

const (
	BackendHuggingFace = "hf"
	BackendTiktoken    = "tiktoken"

	DefaultModel = "Qwen/Qwen3-8B"
)

type Config struct {
	Backend string
	// Model is a path to a tokenizer.json file or a pretrained model id for the
	// hf backend, and an encoding name such as cl100k_base for tiktoken.
	Model            string
	AddSpecialTokens bool
	HuggingFaceToken string
	HuggingFaceCache string
}

func NewFactory(cfg Config) (Factory, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendHuggingFace:
		if cfg.Model == "" {
			cfg.Model = DefaultModel
		}
		return func() (Tokenizer, error) { return NewHuggingFace(cfg) }, nil
	case BackendTiktoken:
		if cfg.Model == "" {
			cfg.Model = "cl100k_base"
		}
		return func() (Tokenizer, error) { return NewTiktoken(cfg.Model) }, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer backend %q", cfg.Backend)
	}
}

type HuggingFace struct {
	tk               *tokenizers.Tokenizer
	addSpecialTokens bool
}

func NewHuggingFace(cfg Config) (*HuggingFace, error) {
	var (
		tk  *tokenizers.Tokenizer
		err error
	)
	if info, statErr := os.Stat(cfg.Model); statErr == nil && !info.IsDir() {
		tk, err = tokenizers.FromFile(cfg.Model)
	} else {
		var opts []tokenizers.TokenizerConfigOption
		if cfg.HuggingFaceToken != "" {
			opts = append(opts, tokenizers.WithAuthToken(cfg.HuggingFaceToken))
		}
		if cfg.HuggingFaceCache != "" {
			opts = append(opts, tokenizers.WithCacheDir(cfg.HuggingFaceCache))
		}
		tk, err = tokenizers.FromPretrained(cfg.Model, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("tokenizer load %s: %w", cfg.Model, err)
	}
	return &HuggingFace{tk: tk, addSpecialTokens: cfg.AddSpecialTokens}, nil
}

func (h *HuggingFace) Count(text string) int {
	ids, _ := h.tk.Encode(text, h.addSpecialTokens)
	return len(ids)
}

func (h *HuggingFace) Close() error {
	return h.tk.Close()
}

type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tiktoken load %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *Tiktoken) Close() error {
	return nil
}
