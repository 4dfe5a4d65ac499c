// Package harvest scrapes the detail page of every song that is not yet in the
// song table and appends one row per song as soon as it is scraped.
package harvest

import (
	"context"
	"fmt"

	"lyricsync/internal/assert"
	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_harvest_load      = "harvest.load-harvested"
	report_harvest_fetch     = "harvest.fetch-song"
	report_harvest_append    = "harvest.append"
	report_harvest_harvested = "harvest.harvested"
	report_harvest_failed    = "harvest.failed"
)

var tracer = otel.Tracer("lyricsync.internal.harvest")

// SongScraper is implemented by *utanet.Client.
type SongScraper interface {
	FetchSong(ctx context.Context, songId string) (table.Song, error)
}

type Result struct {
	// Total is the size of the worklist.
	Total     int
	Harvested int
	Failed    int
	// Skipped is the number of input ids that were already in the table.
	Skipped int
}

type Harvester struct {
	scraper SongScraper
	songs   table.SongTable
	tel     telemetry.API
}

func New(scraper SongScraper, songs table.SongTable, tel telemetry.API) *Harvester {
	assert.NotNil(scraper)
	assert.NotNil(songs)
	assert.NotNil(tel)
	return &Harvester{
		scraper: scraper,
		songs:   songs,
		tel:     telemetry.NewScopedAPI("harvest", tel),
	}
}

// harvested never fails, an unreadable table is the same as an empty one.
func (h *Harvester) harvested(ctx context.Context) map[string]struct{} {
	set := map[string]struct{}{}
	ids, err := h.songs.Identifiers(ctx)
	if table.IsNotExist(err) {
		return set
	}
	if err != nil {
		h.tel.ReportWarning(report_harvest_load, err)
		return set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (h *Harvester) worklist(ctx context.Context, ids []string) []string {
	done := h.harvested(ctx)
	var out []string
	for _, id := range ids {
		if _, ok := done[id]; ok {
			continue
		}
		done[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Harvest appends a row for every id that is not in the song table yet. A song
// that cannot be fetched or stored is reported and skipped. The returned error is
// only set when the table cannot be initialized or ctx is cancelled, the result
// then holds the progress made so far.
func (h *Harvester) Harvest(ctx context.Context, ids []string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Harvest", trace.WithAttributes(
		attribute.Int("ids", len(ids)),
	))
	defer span.End()

	work := h.worklist(ctx, ids)
	res := Result{
		Total:   len(work),
		Skipped: len(ids) - len(work),
	}
	if len(work) == 0 {
		h.tel.ReportDebug("nothing to do", len(ids))
		return res, nil
	}

	err := h.songs.Init(ctx)
	if err != nil {
		return res, fmt.Errorf("init song table: %w", err)
	}

	for i, id := range work {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		song, err := h.scraper.FetchSong(ctx, id)
		if err != nil {
			h.tel.ReportWarning(report_harvest_fetch, err, id)
			res.Failed++
			continue
		}
		err = h.songs.Append(ctx, song)
		if err != nil {
			h.tel.ReportBroken(report_harvest_append, err, id)
			res.Failed++
			continue
		}
		res.Harvested++
		h.tel.ReportDebug("harvested", id, i+1, len(work))
	}

	h.tel.ReportCount(report_harvest_harvested, int64(res.Harvested))
	h.tel.ReportCount(report_harvest_failed, int64(res.Failed))
	span.SetAttributes(
		attribute.Int("harvested", res.Harvested),
		attribute.Int("failed", res.Failed),
	)
	return res, nil
}
