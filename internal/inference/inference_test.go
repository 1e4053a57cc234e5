package inference_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"headline-sft/internal/core/types"
	"headline-sft/internal/inference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int64         `json:"max_tokens"`
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
	})
	return string(body)
}

func testOptions(url string) inference.Options {
	opts := inference.DefaultOptions()
	opts.BaseURL = url + "/v1/"
	opts.Model = "test-model"
	opts.Backoff = time.Millisecond
	opts.Pacing = 0
	opts.Timeout = 5 * time.Second
	return opts
}

func newClient(t *testing.T, opts inference.Options) *inference.Client {
	client, err := inference.NewClient(opts)
	require.NoError(t, err)
	return client
}

var pair = types.PromptPair{System: "[STYLE=đời sống][TASK=lead]", User: "CONTENT:\nC"}

func TestCompleteSuccess(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion("  Một lead ngắn.\n"))
	}))
	defer server.Close()

	client := newClient(t, testOptions(server.URL))
	res := client.Complete(context.Background(), pair)

	require.True(t, res.OK(), res.Err)
	assert.Equal(t, "Một lead ngắn.", res.Text)
	assert.Equal(t, 1, res.Attempts)

	assert.Equal(t, "test-model", got.Model)
	assert.InDelta(t, 0.6, got.Temperature, 1e-9)
	assert.InDelta(t, 0.9, got.TopP, 1e-9)
	assert.Equal(t, int64(4096), got.MaxTokens)
	assert.Equal(t, []chatMessage{
		{Role: "system", Content: pair.System},
		{Role: "user", Content: pair.User},
	}, got.Messages)

	assert.Equal(t, inference.TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}, client.Usage())
}

func TestCompleteRetriesThenMarker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newClient(t, testOptions(server.URL))

	res := client.Complete(context.Background(), pair)
	assert.False(t, res.OK())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), calls.Load())

	out := client.Generate(context.Background(), types.TaskLead, pair)
	assert.True(t, strings.HasPrefix(out, "[ERROR generating lead: "), out)
	assert.True(t, strings.HasSuffix(out, "]"))
	assert.True(t, inference.IsErrorMarker(out))
	assert.Equal(t, int32(6), calls.Load())
}

func TestCompleteRecoversAfterFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion("ok"))
	}))
	defer server.Close()

	res := newClient(t, testOptions(server.URL)).Complete(context.Background(), pair)
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 3, res.Attempts)
}

func TestCompleteNoChoicesIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[]}`)
	}))
	defer server.Close()

	res := newClient(t, testOptions(server.URL)).Complete(context.Background(), pair)
	assert.ErrorIs(t, res.Err, inference.ErrMalformedResponse)
	assert.Equal(t, 3, res.Attempts)
}

func TestCompleteMissingContentIsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no message", body: `{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[{"index":0,"finish_reason":"stop"}]}`},
		{name: "no content", body: `{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[{"index":0,"message":{"role":"assistant"}}]}`},
		{name: "null content", body: `{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":null}}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			client := newClient(t, testOptions(server.URL))
			res := client.Complete(context.Background(), pair)
			assert.False(t, res.OK())
			assert.ErrorIs(t, res.Err, inference.ErrMalformedResponse)
			assert.Equal(t, 3, res.Attempts)

			cache := newMemoryCache()
			gens, summary, err := client.Batch(context.Background(), []types.ArticleRecord{{Content: "C"}}, inference.BatchOptions{Cache: cache})
			require.NoError(t, err)
			require.Len(t, gens, 1)
			assert.True(t, inference.IsErrorMarker(gens[0].Lead))
			assert.True(t, inference.IsErrorMarker(gens[0].Title))
			assert.Equal(t, 2, summary.Failures)
			assert.Empty(t, cache.entries)
		})
	}
}

func TestCompleteEmptyContentIsValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion(""))
	}))
	defer server.Close()

	res := newClient(t, testOptions(server.URL)).Complete(context.Background(), pair)
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, 1, res.Attempts)
}

func TestPacingSpacesRequests(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion("ok"))
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.Pacing = 50 * time.Millisecond
	client := newClient(t, opts)

	for i := 0; i < 3; i++ {
		require.True(t, client.Complete(context.Background(), pair).OK())
	}

	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 40*time.Millisecond)
	}
}

func TestPacingWaitsAfterSlowRequests(t *testing.T) {
	var mu sync.Mutex
	var starts, ends []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()

		time.Sleep(120 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion("ok"))

		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.Pacing = 80 * time.Millisecond
	client := newClient(t, opts)

	for i := 0; i < 3; i++ {
		require.True(t, client.Complete(context.Background(), pair).OK())
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(ends[i-1]), 70*time.Millisecond)
	}
}

func TestPacingAppliesAfterFailures(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.Backoff = 0
	opts.Pacing = 60 * time.Millisecond
	res := newClient(t, opts).Complete(context.Background(), pair)
	assert.False(t, res.OK())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 50*time.Millisecond)
	}
}

func TestPacingSerializesConcurrentCallers(t *testing.T) {
	var mu sync.Mutex
	var starts, ends []time.Time
	var inFlight, maxInFlight int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		starts = append(starts, time.Now())
		if n > maxInFlight {
			maxInFlight = n
		}
		mu.Unlock()

		time.Sleep(40 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion("ok"))

		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
		atomic.AddInt32(&inFlight, -1)
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.Pacing = 50 * time.Millisecond
	client := newClient(t, opts)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, client.Complete(context.Background(), pair).OK())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(1), maxInFlight)
	require.Len(t, starts, 3)
	require.Len(t, ends, 3)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(ends[i-1]), 40*time.Millisecond)
	}
}

func TestCompleteStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.Backoff = time.Hour
	client := newClient(t, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := client.Complete(ctx, pair)
	assert.False(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
}

func TestNewClientValidation(t *testing.T) {
	_, err := inference.NewClient(inference.Options{Model: "m"})
	assert.Error(t, err)

	_, err = inference.NewClient(inference.Options{BaseURL: "http://localhost:11434/v1"})
	assert.Error(t, err)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (m *memoryCache) key(task types.Task, style, model string, pair types.PromptPair) string {
	return strings.Join([]string{string(task), style, model, pair.System, pair.User}, "|")
}

func (m *memoryCache) Lookup(_ context.Context, task types.Task, style, model string, pair types.PromptPair) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.entries[m.key(task, style, model, pair)]
	return out, ok, nil
}

func (m *memoryCache) Store(_ context.Context, task types.Task, style, model string, pair types.PromptPair, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.key(task, style, model, pair)] = output
	return nil
}

func batchServer(t *testing.T, calls *atomic.Int32, titleUsers *[]string) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req chatRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Messages, 2) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		system, user := req.Messages[0].Content, req.Messages[1].Content
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(system, "[TASK=lead]"):
			if strings.Contains(user, "FAIL") {
				http.Error(w, "bad", http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, completion("generated lead"))
		case strings.Contains(system, "[TASK=title]"):
			mu.Lock()
			*titleUsers = append(*titleUsers, user)
			mu.Unlock()
			fmt.Fprint(w, completion("generated title"))
		default:
			http.Error(w, "unexpected task", http.StatusBadRequest)
		}
	}))
}

func TestBatchGeneratesLeadThenTitle(t *testing.T) {
	var calls atomic.Int32
	var titleUsers []string
	server := batchServer(t, &calls, &titleUsers)
	defer server.Close()

	client := newClient(t, testOptions(server.URL))
	articles := []types.ArticleRecord{
		{Style: "du lịch", Content: "<p>Đà Lạt vào mùa hoa.</p>"},
		{Content: "Nội dung thứ hai."},
	}

	gens, summary, err := client.Batch(context.Background(), articles, inference.BatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, []inference.Generation{
		{Lead: "generated lead", Title: "generated title"},
		{Lead: "generated lead", Title: "generated title"},
	}, gens)
	assert.Equal(t, inference.BatchSummary{Rows: 2, Requests: 4}, summary)
	assert.Equal(t, int32(4), calls.Load())

	require.Len(t, titleUsers, 2)
	assert.Contains(t, titleUsers[0], "LEAD:\ngenerated lead")
	assert.Contains(t, titleUsers[0], "CONTENT:\nĐà Lạt vào mùa hoa.")
}

func TestBatchMarksFailedLead(t *testing.T) {
	var calls atomic.Int32
	var titleUsers []string
	server := batchServer(t, &calls, &titleUsers)
	defer server.Close()

	client := newClient(t, testOptions(server.URL))
	gens, summary, err := client.Batch(context.Background(), []types.ArticleRecord{{Content: "FAIL"}}, inference.BatchOptions{})
	require.NoError(t, err)

	require.Len(t, gens, 1)
	assert.True(t, inference.IsErrorMarker(gens[0].Lead))
	assert.Equal(t, "generated title", gens[0].Title)
	assert.Equal(t, 1, summary.Failures)

	require.Len(t, titleUsers, 1)
	assert.NotContains(t, titleUsers[0], "[ERROR")
}

func TestBatchUsesCache(t *testing.T) {
	var calls atomic.Int32
	var titleUsers []string
	server := batchServer(t, &calls, &titleUsers)
	defer server.Close()

	client := newClient(t, testOptions(server.URL))
	cache := newMemoryCache()
	articles := []types.ArticleRecord{{Style: "khoa học công nghệ", Content: "Chip mới."}}

	first, _, err := client.Batch(context.Background(), articles, inference.BatchOptions{Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	second, summary, err := client.Batch(context.Background(), articles, inference.BatchOptions{Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, summary.CacheHits)
	assert.Equal(t, 0, summary.Requests)
}

func TestBatchCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gens, _, err := newClient(t, testOptions(server.URL)).Batch(ctx, []types.ArticleRecord{{Content: "x"}}, inference.BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gens)
}

func TestErrorMarker(t *testing.T) {
	marker := inference.ErrorMarker(types.TaskTitle, fmt.Errorf("timeout"))
	assert.Equal(t, "[ERROR generating title: timeout]", marker)
	assert.True(t, inference.IsErrorMarker(marker))
	assert.False(t, inference.IsErrorMarker("Tiêu đề bình thường"))
}
