// Package utanet scrapes artist listings and song pages from uta-net.com.
package utanet

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"lyricsync/internal/assert"
	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"
	"lyricsync/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch         = "client.fetch"
	report_client_fetch_listing = "client.fetch-listing"
	report_client_fetch_song    = "client.fetch-song"
)

const DefaultBaseUrl = "https://www.uta-net.com"

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// PolitenessDelay is the minimum time between two requests, zero disables it.
	PolitenessDelay time.Duration
	// CloudflareBypass wraps the transport with browser-like TLS and headers.
	CloudflareBypass bool
	// InstrumentOutput receives full request/response dumps when debug logging is on, can be nil.
	InstrumentOutput restyutil.InstrumentOutput
}

type Client struct {
	BaseUrl *url.URL
	http    *resty.Client
	tel     telemetry.API
}

// StatusError is returned when the site answers with a non-2xx status.
type StatusError struct {
	Url    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.Url, e.Status)
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("utanet_scraper", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetTimeout(time.Second * 30)

	// at most one request per politeness delay, the first request is never delayed
	limit := rate.Inf
	if opts.PolitenessDelay > 0 {
		limit = rate.Every(opts.PolitenessDelay)
	}
	rateLimiter := rate.NewLimiter(limit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, nil, opts.InstrumentOutput)

	return &Client{
		BaseUrl: parsedBaseUrl,
		http:    httpClient,
		tel:     tel,
	}, nil
}

// Fetch gets a page and parses it, non-2xx responses are returned as *StatusError.
func (c *Client) Fetch(ctx context.Context, link string) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", link, err)
	}
	if !res.IsSuccess() {
		return nil, &StatusError{Url: link, Status: res.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(
			report_client_fetch,
			fmt.Errorf("parse html: %w", err),
			link,
		)
		return nil, err
	}
	return doc, nil
}

// FetchListing fetches one page of an artist's song listing.
func (c *Client) FetchListing(ctx context.Context, pageUrl string) (Listing, error) {
	doc, err := c.Fetch(ctx, pageUrl)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_listing, err)
		return Listing{}, err
	}
	listing := ParseListing(ctx, doc)
	c.tel.ReportDebug("parsed listing", pageUrl, len(listing.SongIDs), len(listing.PageLinks))
	return listing, nil
}

// FetchSong fetches and extracts a song's detail page.
func (c *Client) FetchSong(ctx context.Context, songId string) (table.Song, error) {
	doc, err := c.Fetch(ctx, SongPath(songId))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_song, err, songId)
		return table.Song{}, err
	}
	return ParseSong(songId, doc, c.tel), nil
}
