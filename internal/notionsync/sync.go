// Package notionsync mirrors a song table into a Notion database. Every run lists the ids
// already in the database, then creates a page for each local song that is missing.
package notionsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lyricsync/internal/assert"
	"lyricsync/internal/chrono"
	"lyricsync/internal/notion"
	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_sync_preconditions = "sync.preconditions"
	report_sync_remote_ids    = "sync.remote-ids"
	report_sync_upload        = "sync.upload"
	report_sync_convert       = "sync.convert"
	report_sync_uploaded      = "sync.uploaded"
	report_sync_failed        = "sync.failed"
)

var tracer = otel.Tracer("lyricsync.internal.notionsync")
var meter = otel.Meter("lyricsync.internal.notionsync")
var uploadCounter, _ = meter.Int64Counter(
	"lyricsync.sync.uploads",
	metric.WithDescription("page creations by result"),
)

// Remote is the subset of the notion client used by the synchronizer.
//
// note: fault injection point
type Remote interface {
	CreatePage(ctx context.Context, props notion.Properties) error
	QueryPages(ctx context.Context, cursor string) (notion.QueryPage, error)
}

// Credentials are required for a sync to start.
type Credentials struct {
	Token      string
	DatabaseID string
}

type Options struct {
	// BatchSize is the number of uploads after which the pause is doubled.
	BatchSize int
	// Delay is the pause between two uploads.
	Delay time.Duration
	// Attempts is the number of times a single song is tried.
	Attempts int
	// BackoffBase is the first wait after a transport error, it doubles every attempt.
	BackoffBase time.Duration
	// DefaultRetryAfter is used when a rate limit answer carries no Retry-After.
	DefaultRetryAfter time.Duration
}

func DefaultOptions() Options {
	return Options{
		BatchSize:         10,
		Delay:             350 * time.Millisecond,
		Attempts:          3,
		BackoffBase:       time.Second,
		DefaultRetryAfter: time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Attempts <= 0 {
		o.Attempts = def.Attempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = def.BackoffBase
	}
	if o.DefaultRetryAfter <= 0 {
		o.DefaultRetryAfter = def.DefaultRetryAfter
	}
	return o
}

// Precondition tells why a sync did not start.
type Precondition int

const (
	PreconditionOK Precondition = iota
	PreconditionMissingCredentials
	PreconditionMissingTable
	PreconditionUnreadableTable
)

func (p Precondition) String() string {
	switch p {
	case PreconditionOK:
		return "ok"
	case PreconditionMissingCredentials:
		return "missing credentials"
	case PreconditionMissingTable:
		return "missing song table"
	case PreconditionUnreadableTable:
		return "unreadable song table"
	}
	return fmt.Sprintf("precondition(%d)", int(p))
}

type Summary struct {
	Success int
	Failed  int
	// Total is the number of songs that were missing remotely.
	Total int
	// AlreadyRemote is the number of local songs skipped because they exist remotely.
	AlreadyRemote int
	// Truncated is the number of uploaded songs whose lyrics were cut to fit.
	Truncated int
	// RemoteListingFailed is set when the remote ids could not be listed and every
	// local song was treated as missing.
	RemoteListingFailed bool
	Precondition        Precondition
	// PreconditionErr carries the cause of a failed precondition, if any.
	PreconditionErr error
}

type Synchronizer struct {
	creds  Credentials
	remote Remote
	songs  table.SongTable
	opts   Options
	clock  chrono.API
	tel    telemetry.API
}

func New(
	creds Credentials,
	remote Remote,
	songs table.SongTable,
	opts Options,
	clock chrono.API,
	tel telemetry.API,
) *Synchronizer {
	assert.NotNil(songs)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return &Synchronizer{
		creds:  creds,
		remote: remote,
		songs:  songs,
		opts:   opts.withDefaults(),
		clock:  clock,
		tel:    telemetry.NewScopedAPI("notion_sync", tel),
	}
}

// idKey canonicalizes an id so that "0123" and the remote number 123 compare equal.
func idKey(id string) string {
	n := songIDNumber(id)
	if n == nil {
		return strings.TrimSpace(id)
	}
	return strconv.FormatFloat(*n, 'f', -1, 64)
}

// remoteIDs lists every song_id in the database.
func (s *Synchronizer) remoteIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := map[string]struct{}{}
	cursor := ""
	for page := 1; ; page++ {
		res, err := s.remote.QueryPages(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("query page %d: %w", page, err)
		}
		for _, row := range res.Results {
			prop, ok := row.Properties[propSongID]
			if !ok || prop.Number == nil {
				continue
			}
			ids[strconv.FormatFloat(*prop.Number, 'f', -1, 64)] = struct{}{}
		}
		if !res.HasMore || res.NextCursor == "" {
			return ids, nil
		}
		cursor = res.NextCursor
	}
}

func (s *Synchronizer) preconditions(ctx context.Context) ([]table.Song, Summary, bool) {
	if s.creds.Token == "" || s.creds.DatabaseID == "" || s.remote == nil {
		s.tel.ReportWarning(report_sync_preconditions, "token and database id are required")
		return nil, Summary{Precondition: PreconditionMissingCredentials}, false
	}
	songs, err := s.songs.Songs(ctx)
	if table.IsNotExist(err) {
		s.tel.ReportWarning(report_sync_preconditions, err)
		return nil, Summary{Precondition: PreconditionMissingTable, PreconditionErr: err}, false
	}
	if err != nil {
		s.tel.ReportBroken(report_sync_preconditions, err)
		return nil, Summary{Precondition: PreconditionUnreadableTable, PreconditionErr: err}, false
	}
	return songs, Summary{}, true
}

// Sync uploads every local song that is not in the database yet. It never fails
// because of a single song, the outcome of every song is counted in the summary.
func (s *Synchronizer) Sync(ctx context.Context) Summary {
	ctx, span := tracer.Start(ctx, "Sync")
	defer span.End()

	local, summary, ok := s.preconditions(ctx)
	if !ok {
		return summary
	}

	remote, err := s.remoteIDs(ctx)
	if err != nil {
		// fail open: a duplicate page is recoverable, silently skipping songs is not
		s.tel.ReportWarning(report_sync_remote_ids, err)
		summary.RemoteListingFailed = true
		remote = map[string]struct{}{}
	}

	var worklist []table.Song
	seen := map[string]struct{}{}
	for _, song := range local {
		key := idKey(song.SongID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, exists := remote[key]; exists {
			summary.AlreadyRemote++
			continue
		}
		worklist = append(worklist, song)
	}
	summary.Total = len(worklist)
	if len(worklist) == 0 {
		s.tel.ReportDebug("nothing to upload", len(local))
		return summary
	}

	for i, song := range worklist {
		if i > 0 {
			pause := s.opts.Delay
			if i%s.opts.BatchSize == 0 {
				pause = 2 * s.opts.Delay
			}
			if err := s.clock.Sleep(ctx, pause); err != nil {
				summary.Failed += len(worklist) - i
				break
			}
		}

		props, report := ConvertSong(song)
		if report.Truncated {
			s.tel.ReportWarning(report_sync_convert, "lyrics truncated", song.SongID)
			summary.Truncated++
		}

		if s.upload(ctx, song.SongID, props) {
			summary.Success++
			uploadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))
			continue
		}
		summary.Failed++
		uploadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failed")))
	}

	s.tel.ReportCount(report_sync_uploaded, int64(summary.Success))
	s.tel.ReportCount(report_sync_failed, int64(summary.Failed))
	return summary
}

// upload creates a single page within the attempt budget. Rate limits wait for the
// server's Retry-After, transport errors back off exponentially, anything else is final.
func (s *Synchronizer) upload(ctx context.Context, songID string, props notion.Properties) bool {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		err := s.remote.CreatePage(ctx, props)
		if err == nil {
			return true
		}
		lastErr = err

		var wait time.Duration
		var rateErr *notion.RateLimitError
		var transportErr *notion.TransportError
		switch {
		case errors.As(err, &rateErr):
			wait = s.opts.DefaultRetryAfter
			if rateErr.HasRetryAfter {
				wait = rateErr.RetryAfter
			}
		case errors.As(err, &transportErr):
			wait = s.opts.BackoffBase << (attempt - 1)
		default:
			s.tel.ReportBroken(report_sync_upload, err, songID)
			return false
		}

		if attempt == s.opts.Attempts {
			break
		}
		s.tel.ReportDebug("retrying upload", songID, attempt, wait.String(), err)
		if err := s.clock.Sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}
	s.tel.ReportBroken(report_sync_upload, fmt.Errorf("gave up: %w", lastErr), songID)
	return false
}
