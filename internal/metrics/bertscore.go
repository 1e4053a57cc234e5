package metrics

import (
	"context"
	"fmt"
	"math"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder maps texts to vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

const DefaultEmbedBatchSize = 256

// OpenAIEmbedder embeds texts with an OpenAI compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

func NewOpenAIEmbedder(baseURL, apiKey, model string) *OpenAIEmbedder {
	if apiKey == "" {
		apiKey = "none"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEmbedder{client: openai.NewClient(opts...), model: model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	res, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(res.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Data))
	}

	out := make([][]float64, len(texts))
	for i, d := range res.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

// tokenVectors embeds every distinct token of the given token lists once.
func tokenVectors(ctx context.Context, embedder Embedder, batchSize int, lists ...[][]string) (map[string][]float64, error) {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}

	var unique []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, tokens := range list {
			for _, tok := range tokens {
				if !seen[tok] {
					seen[tok] = true
					unique = append(unique, tok)
				}
			}
		}
	}

	vectors := make(map[string][]float64, len(unique))
	for start := 0; start < len(unique); start += batchSize {
		end := min(start+batchSize, len(unique))
		embs, err := embedder.Embed(ctx, unique[start:end])
		if err != nil {
			return nil, err
		}
		for i, emb := range embs {
			vectors[unique[start+i]] = normalize(emb)
		}
	}
	return vectors, nil
}

func normalize(v []float64) []float64 {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := 0; i < len(a) && i < len(b); i++ {
		s += a[i] * b[i]
	}
	return s
}

// greedyMatch is the mean, over from tokens, of the best cosine similarity
// with any to token.
func greedyMatch(from, to []string, vectors map[string][]float64) float64 {
	total := 0.0
	for _, f := range from {
		best := math.Inf(-1)
		for _, t := range to {
			best = math.Max(best, dot(vectors[f], vectors[t]))
		}
		total += best
	}
	return total / float64(len(from))
}

// pairBERTScore is the greedy matching F1 of one reference/hypothesis pair.
// Either side being empty scores 0.
func pairBERTScore(ref, hyp []string, vectors map[string][]float64) float64 {
	if len(ref) == 0 || len(hyp) == 0 {
		return 0
	}
	precision := greedyMatch(hyp, ref, vectors)
	recall := greedyMatch(ref, hyp, vectors)
	if precision+recall <= 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// BERTScore returns the mean greedy matching F1 over all pairs.
func BERTScore(ctx context.Context, embedder Embedder, refs, hyps [][]string, batchSize int) (float64, error) {
	if len(refs) != len(hyps) {
		return 0, fmt.Errorf("got %d references and %d hypotheses", len(refs), len(hyps))
	}
	if len(refs) == 0 {
		return 0, nil
	}

	vectors, err := tokenVectors(ctx, embedder, batchSize, refs, hyps)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for i := range refs {
		total += pairBERTScore(refs[i], hyps[i], vectors)
	}
	return total / float64(len(refs)), nil
}
