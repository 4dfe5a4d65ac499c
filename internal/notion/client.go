// Package notion is a minimal client for the parts of the Notion API used to mirror a song table
// into a database: page creation and paginated database queries.
package notion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lyricsync/internal/assert"
	"lyricsync/internal/chrono"
	"lyricsync/internal/telemetry"
	"lyricsync/lib/restyutil"

	"github.com/go-resty/resty/v2"
)

const (
	report_client_create_page = "client.create-page"
	report_client_query_pages = "client.query-pages"
)

const (
	DefaultBaseUrl = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
	// QueryPageSize is the largest page size the query endpoint accepts.
	QueryPageSize = 100
)

type Config struct {
	Token      string `json:"token"`
	DatabaseID string `json:"database_id"`
	BaseUrl    string `json:"base_url"`
	Version    string `json:"version"`
}

type Client struct {
	cfg   Config
	http  *resty.Client
	clock chrono.API
	tel   telemetry.API
}

// NewClient creates a client, `output` receives request dumps in debug mode and can be nil.
// clock resolves Retry-After dates.
func NewClient(cfg Config, clock chrono.API, tel telemetry.API, output restyutil.InstrumentOutput) *Client {
	assert.NotNil(clock)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("notion", tel)

	if cfg.BaseUrl == "" {
		cfg.BaseUrl = DefaultBaseUrl
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.BaseUrl)
	httpClient.SetAuthToken(cfg.Token)
	httpClient.SetHeader("Notion-Version", cfg.Version)
	httpClient.SetHeader("Content-Type", "application/json")
	httpClient.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, nil, output)

	return &Client{cfg: cfg, http: httpClient, clock: clock, tel: tel}
}

func (c *Client) do(ctx context.Context, path string, body any, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&APIError{})
	if out != nil {
		req.SetResult(out)
	}
	res, err := req.Post(path)
	if err != nil {
		return &TransportError{Err: err}
	}
	if res.IsSuccess() {
		return nil
	}

	if res.StatusCode() == http.StatusTooManyRequests {
		retryAfter, ok := parseRetryAfter(res.Header().Get("Retry-After"), c.clock.Now())
		return &RateLimitError{RetryAfter: retryAfter, HasRetryAfter: ok}
	}
	apiErr, ok := res.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = res.StatusCode()
	return apiErr
}

// CreatePage creates a row in the configured database.
func (c *Client) CreatePage(ctx context.Context, props Properties) error {
	body := map[string]any{
		"parent":     map[string]string{"database_id": c.cfg.DatabaseID},
		"properties": props,
	}
	err := c.do(ctx, "/pages", body, nil)
	if err != nil {
		c.tel.ReportDebug(report_client_create_page, err)
		return err
	}
	return nil
}

// QueryPages returns one page of rows of the configured database, an empty cursor starts from the beginning.
func (c *Client) QueryPages(ctx context.Context, cursor string) (QueryPage, error) {
	body := map[string]any{"page_size": QueryPageSize}
	if cursor != "" {
		body["start_cursor"] = cursor
	}

	var page QueryPage
	err := c.do(ctx, fmt.Sprintf("/databases/%s/query", c.cfg.DatabaseID), body, &page)
	if err != nil {
		c.tel.ReportWarning(report_client_query_pages, err)
		return QueryPage{}, err
	}
	return page, nil
}
