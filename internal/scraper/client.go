package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"headline-sft/internal/core/types"
	"headline-sft/internal/core/utils"
	"headline-sft/internal/tabular"

	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://gw.vnexpress.net"
	DefaultTimeout  = 10 * time.Second
	DefaultWorkers  = 4
	DefaultInterval = 100 * time.Millisecond

	articlePath = "/ar/get_full"
	dataSelect  = "article_id,article_type,title,share_url,thumbnail_url,publish_time,lead,privacy,original_cate,article_category"
)

var ErrArticleNotFound = errors.New("article not found")

// Columns of the table produced by Scrape.
var Columns = []string{"no", "type", "id", "title", "lead", "content"}

type Client struct {
	client  *resty.Client
	policy  *bluemonday.Policy
	workers int
	limiter *rate.Limiter
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)

	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
		policy:  policy,
		workers: DefaultWorkers,
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}
}

// SetConcurrency sets how many articles are fetched at once.
func (c *Client) SetConcurrency(workers int) *Client {
	if workers > 0 {
		c.workers = workers
	}
	return c
}

// SetInterval sets the minimum gap between two requests to the gateway. Zero
// removes the limit.
func (c *Client) SetInterval(interval time.Duration) *Client {
	if interval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return c
}

type articleResponse struct {
	Data json.RawMessage `json:"data"`
}

type articleData struct {
	Title   string `json:"title"`
	Lead    string `json:"lead"`
	Content string `json:"content"`
}

// Fetch downloads one article. Title, lead and content are returned as plain
// text.
func (c *Client) Fetch(ctx context.Context, id string) (types.ArticleRecord, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"article_id":    id,
			"data_select":   dataSelect,
			"thumb_size":    "680x408,500x300,300x180",
			"thumb_quality": "100",
			"thumb_dpr":     "1,2",
			"thumb_fit":     "crop",
		}).
		SetHeader("Accept", "application/json").
		Get(articlePath)
	if err != nil {
		return types.ArticleRecord{}, fmt.Errorf("error fetching article %s: %w", id, err)
	}
	if !res.IsSuccess() {
		return types.ArticleRecord{}, fmt.Errorf("error fetching article %s: status %d", id, res.StatusCode())
	}

	var body articleResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return types.ArticleRecord{}, fmt.Errorf("error parsing article %s: %w", id, err)
	}
	if len(body.Data) == 0 || body.Data[0] != '{' {
		return types.ArticleRecord{}, fmt.Errorf("%w: %s", ErrArticleNotFound, id)
	}

	var data articleData
	if err := json.Unmarshal(body.Data, &data); err != nil {
		return types.ArticleRecord{}, fmt.Errorf("error parsing article %s: %w", id, err)
	}

	return types.ArticleRecord{
		ID:      id,
		Title:   c.plainText(data.Title),
		Lead:    c.plainText(data.Lead),
		Content: c.plainLines(data.Content),
	}, nil
}

func (c *Client) strip(s string) string {
	return html.UnescapeString(c.policy.Sanitize(s))
}

// plainText returns s without markup on a single line.
func (c *Client) plainText(s string) string {
	return strings.Join(strings.Fields(c.strip(s)), " ")
}

var blockBreaks = strings.NewReplacer(
	"</p>", "</p>\n",
	"</P>", "</P>\n",
	"<br>", "<br>\n",
	"<br/>", "<br/>\n",
	"<br />", "<br />\n",
	"</div>", "</div>\n",
	"</li>", "</li>\n",
	"</h1>", "</h1>\n",
	"</h2>", "</h2>\n",
	"</h3>", "</h3>\n",
	"</h4>", "</h4>\n",
	"</tr>", "</tr>\n",
)

// plainLines returns s without markup, one paragraph per line. Whitespace is
// collapsed within a line and blank lines are dropped.
func (c *Client) plainLines(s string) string {
	var lines []string
	for _, line := range strings.Split(c.strip(blockBreaks.Replace(s)), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

type Summary struct {
	Requested int
	Fetched   int
	Failed    int
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("requested", s.Requested),
		slog.Int("fetched", s.Fetched),
		slog.Int("failed", s.Failed),
	)
}

type job struct {
	style string
	id    string
}

// Scrape fetches every article of the manifest into a table with Columns, in
// manifest order. Articles that cannot be fetched are logged and left out. When
// ctx is cancelled the articles fetched so far are returned with ctx's error.
func (c *Client) Scrape(ctx context.Context, manifest Manifest, showProgress bool) (*tabular.Table, Summary, error) {
	var jobs []job
	for _, entry := range manifest.Styles {
		for _, id := range entry.IDs {
			jobs = append(jobs, job{style: entry.Style, id: id})
		}
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("scraping"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}

	worker := func(j job) (types.ArticleRecord, error) {
		if bar != nil {
			defer func() { _ = bar.Add(1) }()
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return types.ArticleRecord{}, err
		}
		return c.Fetch(ctx, j.id)
	}

	completed := make(chan utils.CompletedTask[types.ArticleRecord], len(jobs))
	utils.RunInPool(worker, utils.QueueOf(jobs), completed, c.workers)
	results := utils.CollectOrdered(completed, len(jobs))

	if bar != nil {
		_ = bar.Finish()
	}

	table := tabular.New(Columns)
	summary := Summary{}
	for i, res := range results {
		j := jobs[i]
		summary.Requested++

		if res.Error != nil {
			if ctx.Err() == nil {
				slog.Warn("skipping article", "id", j.id, "style", j.style, "error", res.Error)
			}
			summary.Failed++
			continue
		}

		summary.Fetched++
		table.Append(map[string]string{
			"no":      strconv.Itoa(summary.Fetched),
			"type":    j.style,
			"id":      res.Result.ID,
			"title":   res.Result.Title,
			"lead":    res.Result.Lead,
			"content": res.Result.Content,
		})
	}

	return table, summary, ctx.Err()
}
