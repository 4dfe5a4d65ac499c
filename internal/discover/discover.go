// Package discover walks an artist's paginated song listing and keeps a
// deduplicated, sorted set of song ids in an identifier table.
package discover

import (
	"context"
	"fmt"
	"sort"

	"lyricsync/internal/assert"
	"lyricsync/internal/scrapers/utanet"
	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_discover_fetch     = "discover.fetch-page"
	report_discover_load      = "discover.load-ids"
	report_discover_max_pages = "discover.max-pages"
	report_discover_found     = "discover.found"
	report_discover_new       = "discover.new"
)

// FullPageSize is the number of songs on a full listing page. A page that is
// full is never treated as the last one.
const FullPageSize = 20

const DefaultMaxPages = 1000

var tracer = otel.Tracer("lyricsync.internal.discover")

// ListingFetcher is implemented by *utanet.Client.
type ListingFetcher interface {
	FetchListing(ctx context.Context, pageUrl string) (utanet.Listing, error)
}

type Result struct {
	// IDs is the merged, sorted set that is now persisted.
	IDs []string
	// Found is the number of distinct ids seen during this walk.
	Found int
	// New is the number of ids that were not in the table before.
	New   int
	Pages int
}

type Discoverer struct {
	ids     table.IdentifierTable
	fetcher ListingFetcher
	tel     telemetry.API

	MaxPages int
}

func New(ids table.IdentifierTable, fetcher ListingFetcher, tel telemetry.API) *Discoverer {
	assert.NotNil(ids)
	assert.NotNil(fetcher)
	assert.NotNil(tel)
	return &Discoverer{
		ids:      ids,
		fetcher:  fetcher,
		tel:      telemetry.NewScopedAPI("discover", tel),
		MaxPages: DefaultMaxPages,
	}
}

func (d *Discoverer) existing(ctx context.Context) (map[string]struct{}, error) {
	ids, err := d.ids.Load(ctx)
	if table.IsNotExist(err) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// walk fetches listing pages until one of the stop conditions holds and returns
// every id it saw. Fetch errors end the walk, they are not returned.
func (d *Discoverer) walk(ctx context.Context, catalogUrl, artistId string) (map[string]struct{}, int) {
	found := map[string]struct{}{}
	pages := 0
	for page := 1; ; page++ {
		if page > d.MaxPages {
			d.tel.ReportWarning(report_discover_max_pages, d.MaxPages, catalogUrl)
			return found, pages
		}
		if ctx.Err() != nil {
			return found, pages
		}

		pageUrl, err := utanet.ListingPageUrl(catalogUrl, page)
		if err != nil {
			d.tel.ReportBroken(report_discover_fetch, err, page)
			return found, pages
		}
		listing, err := d.fetcher.FetchListing(ctx, pageUrl)
		if err != nil {
			d.tel.ReportWarning(report_discover_fetch, err, pageUrl)
			return found, pages
		}
		pages++

		count := len(listing.SongIDs)
		d.tel.ReportDebug("listing page", page, count)
		if count == 0 {
			return found, pages
		}
		for _, id := range listing.SongIDs {
			found[id] = struct{}{}
		}
		if !utanet.HasNextPage(listing, artistId, page) && count < FullPageSize {
			return found, pages
		}
	}
}

// Discover collects the song ids of the artist behind catalogUrl and merges them
// into the identifier table. The table is only rewritten when new ids were found.
func (d *Discoverer) Discover(ctx context.Context, catalogUrl string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Discover", trace.WithAttributes(
		attribute.String("catalog_url", catalogUrl),
	))
	defer span.End()

	artistId, err := utanet.ArtistID(catalogUrl)
	if err != nil {
		return Result{}, err
	}
	existing, err := d.existing(ctx)
	if err != nil {
		d.tel.ReportBroken(report_discover_load, err)
		return Result{}, fmt.Errorf("load existing ids: %w", err)
	}

	found, pages := d.walk(ctx, catalogUrl, artistId)

	merged := make([]string, 0, len(existing)+len(found))
	for id := range existing {
		merged = append(merged, id)
	}
	added := 0
	for id := range found {
		if _, ok := existing[id]; ok {
			continue
		}
		merged = append(merged, id)
		added++
	}
	sort.Strings(merged)

	res := Result{IDs: merged, Found: len(found), New: added, Pages: pages}
	d.tel.ReportCount(report_discover_found, int64(res.Found))
	d.tel.ReportCount(report_discover_new, int64(res.New))
	span.SetAttributes(
		attribute.Int("pages", pages),
		attribute.Int("new", added),
	)

	if added == 0 {
		d.tel.ReportDebug("no new ids", len(merged))
		return res, nil
	}
	// a cancelled walk still persists what it found
	err = d.ids.Write(context.WithoutCancel(ctx), merged)
	if err != nil {
		return res, fmt.Errorf("write ids: %w", err)
	}
	return res, nil
}
