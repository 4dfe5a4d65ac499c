package notionsync

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"

	"lyricsync/internal/chrono"
	"lyricsync/internal/notion"
	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRemote serves remote ids from pages and answers CreatePage from a script,
// once the script runs out every call succeeds.
type fakeRemote struct {
	pages    []notion.QueryPage
	queryErr error

	script  []error
	created []string
}

func (f *fakeRemote) QueryPages(ctx context.Context, cursor string) (notion.QueryPage, error) {
	if f.queryErr != nil {
		return notion.QueryPage{}, f.queryErr
	}
	if len(f.pages) == 0 {
		return notion.QueryPage{}, nil
	}
	index := 0
	if cursor != "" {
		i, err := strconv.Atoi(cursor)
		if err != nil {
			return notion.QueryPage{}, err
		}
		index = i
	}
	return f.pages[index], nil
}

func (f *fakeRemote) CreatePage(ctx context.Context, props notion.Properties) error {
	if len(f.script) > 0 {
		err := f.script[0]
		f.script = f.script[1:]
		if err != nil {
			return err
		}
	}
	n := props[propSongID].Number
	if n == nil {
		f.created = append(f.created, "<null>")
		return nil
	}
	f.created = append(f.created, strconv.FormatFloat(*n, 'f', -1, 64))
	return nil
}

// remotePages splits ids into query pages of size n, cursors are page indexes.
func remotePages(n int, ids ...string) []notion.QueryPage {
	var pages []notion.QueryPage
	for start := 0; start < len(ids); start += n {
		end := min(start+n, len(ids))
		var page notion.QueryPage
		for _, id := range ids[start:end] {
			num, _ := strconv.ParseFloat(id, 64)
			page.Results = append(page.Results, notion.Page{
				ID:         "page-" + id,
				Properties: notion.Properties{propSongID: notion.NumberProperty(&num)},
			})
		}
		if end < len(ids) {
			page.HasMore = true
			page.NextCursor = strconv.Itoa(len(pages) + 1)
		}
		pages = append(pages, page)
	}
	return pages
}

func writeSongs(t *testing.T, ids ...string) table.SongTable {
	songs := table.CSVSongTable{Path: filepath.Join(t.TempDir(), "lyrics.csv")}
	ctx := context.Background()
	require.NoError(t, songs.Init(ctx))
	for _, id := range ids {
		require.NoError(t, songs.Append(ctx, table.Song{SongID: id, Title: "song " + id}))
	}
	return songs
}

var creds = Credentials{Token: "secret", DatabaseID: "db"}

func newTestSynchronizer(remote Remote, songs table.SongTable, opts Options) (*Synchronizer, *chrono.Fake, *telemetry.Recorder) {
	clock := chrono.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec := telemetry.NewRecorder()
	return New(creds, remote, songs, opts, clock, rec), clock, rec
}

func noDelay() Options {
	return Options{BatchSize: 10, Delay: 0}
}

func TestSyncMissingCredentials(t *testing.T) {
	remote := &fakeRemote{}
	s := New(Credentials{DatabaseID: "db"}, remote, writeSongs(t, "1"), noDelay(), chrono.NewFake(time.Time{}), telemetry.NewRecorder())

	summary := s.Sync(context.Background())
	require.Equal(t, PreconditionMissingCredentials, summary.Precondition)
	require.Zero(t, summary.Success+summary.Failed+summary.Total)
	require.Empty(t, remote.created)
}

func TestSyncMissingTable(t *testing.T) {
	remote := &fakeRemote{}
	songs := table.CSVSongTable{Path: filepath.Join(t.TempDir(), "missing.csv")}
	s, _, _ := newTestSynchronizer(remote, songs, noDelay())

	summary := s.Sync(context.Background())
	require.Equal(t, PreconditionMissingTable, summary.Precondition)
	require.Error(t, summary.PreconditionErr)
	require.Zero(t, summary.Total)
}

func TestSyncUnreadableTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics.csv")
	require.NoError(t, os.WriteFile(path, []byte("song_id,title\n1,bro\"ken\n2,x\n"), 0644))
	s, _, _ := newTestSynchronizer(&fakeRemote{}, table.CSVSongTable{Path: path}, noDelay())

	summary := s.Sync(context.Background())
	require.Equal(t, PreconditionUnreadableTable, summary.Precondition)
}

func TestSyncSkipsRemoteIds(t *testing.T) {
	remote := &fakeRemote{pages: remotePages(1, "2", "4")}
	s, _, _ := newTestSynchronizer(remote, writeSongs(t, "1", "2", "3", "4"), noDelay())

	summary := s.Sync(context.Background())
	require.Equal(t, PreconditionOK, summary.Precondition)
	require.Equal(t, []string{"1", "3"}, remote.created)
	require.Equal(t, 2, summary.Success)
	require.Equal(t, 2, summary.Total)
	require.Equal(t, 2, summary.AlreadyRemote)
	require.Zero(t, summary.Failed)
}

func TestSyncNeverReuploadsAnyOrdering(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		all := make([]string, 30)
		for i := range all {
			all[i] = strconv.Itoa(1000 + i)
		}
		r.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		remoteIds := append([]string(nil), all[:r.Intn(len(all))]...)
		r.Shuffle(len(remoteIds), func(i, j int) { remoteIds[i], remoteIds[j] = remoteIds[j], remoteIds[i] })

		remote := &fakeRemote{pages: remotePages(7, remoteIds...)}
		s, _, _ := newTestSynchronizer(remote, writeSongs(t, all...), noDelay())
		summary := s.Sync(context.Background())

		expected := append([]string(nil), all[len(remoteIds):]...)
		created := append([]string(nil), remote.created...)
		sort.Strings(expected)
		sort.Strings(created)
		if len(expected) == 0 {
			expected = nil
		}
		require.Equal(t, expected, created, "round %d", round)
		require.Equal(t, len(expected), summary.Success)
	}
}

func TestSyncNothingToUpload(t *testing.T) {
	remote := &fakeRemote{pages: remotePages(100, "1", "2")}
	s, clock, _ := newTestSynchronizer(remote, writeSongs(t, "1", "2"), noDelay())

	summary := s.Sync(context.Background())
	require.Equal(t, Summary{AlreadyRemote: 2}, summary)
	require.Empty(t, remote.created)
	require.Empty(t, clock.Sleeps())
}

func TestSyncCanonicalIds(t *testing.T) {
	remote := &fakeRemote{pages: remotePages(100, "123")}
	s, _, _ := newTestSynchronizer(remote, writeSongs(t, "0123", "123", "abc"), noDelay())

	summary := s.Sync(context.Background())
	require.Equal(t, []string{"<null>"}, remote.created)
	require.Equal(t, 1, summary.AlreadyRemote)
}

func TestSyncRateLimitRetry(t *testing.T) {
	remote := &fakeRemote{script: []error{
		&notion.RateLimitError{RetryAfter: 2 * time.Second, HasRetryAfter: true},
	}}
	s, clock, _ := newTestSynchronizer(remote, writeSongs(t, "1"), noDelay())

	summary := s.Sync(context.Background())
	require.Equal(t, []time.Duration{2 * time.Second}, clock.Sleeps())
	require.Equal(t, []string{"1"}, remote.created)
	require.Equal(t, 1, summary.Success)
	require.Zero(t, summary.Failed)
}

func TestSyncRateLimitExhausted(t *testing.T) {
	rateErr := &notion.RateLimitError{}
	remote := &fakeRemote{script: []error{rateErr, rateErr, rateErr}}
	s, clock, rec := newTestSynchronizer(remote, writeSongs(t, "1", "2"), Options{BatchSize: 10, Delay: 0})

	summary := s.Sync(context.Background())
	// default retry after twice, then the pacing pause before the second song
	require.Equal(t, []time.Duration{time.Second, time.Second, 0}, clock.Sleeps())
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Success)
	require.Equal(t, []string{"2"}, remote.created)
	require.Len(t, rec.Find("broken", report_sync_upload), 1)
}

func TestSyncTransportBackoff(t *testing.T) {
	transportErr := &notion.TransportError{Err: errors.New("connection reset")}

	remote := &fakeRemote{script: []error{transportErr, transportErr}}
	s, clock, _ := newTestSynchronizer(remote, writeSongs(t, "1"), noDelay())
	summary := s.Sync(context.Background())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
	require.Equal(t, 1, summary.Success)

	remote = &fakeRemote{script: []error{transportErr, transportErr, transportErr}}
	s, clock, _ = newTestSynchronizer(remote, writeSongs(t, "1"), noDelay())
	summary = s.Sync(context.Background())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
	require.Equal(t, 1, summary.Failed)
	require.Empty(t, remote.created)
}

func TestSyncRejectedIsNotRetried(t *testing.T) {
	remote := &fakeRemote{script: []error{&notion.APIError{Status: 400, Code: "validation_error"}}}
	s, clock, _ := newTestSynchronizer(remote, writeSongs(t, "1"), noDelay())

	summary := s.Sync(context.Background())
	require.Equal(t, 1, summary.Failed)
	require.Zero(t, summary.Success)
	require.Empty(t, remote.script)
	require.Empty(t, clock.Sleeps())
}

func TestSyncPacing(t *testing.T) {
	remote := &fakeRemote{}
	s, clock, _ := newTestSynchronizer(remote, writeSongs(t, "1", "2", "3", "4", "5"), Options{
		BatchSize: 2,
		Delay:     100 * time.Millisecond,
	})

	summary := s.Sync(context.Background())
	require.Equal(t, 5, summary.Success)
	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
	}, clock.Sleeps())
}

func TestSyncRemoteListingFailsOpen(t *testing.T) {
	remote := &fakeRemote{queryErr: &notion.APIError{Status: 500}}
	s, _, rec := newTestSynchronizer(remote, writeSongs(t, "1", "2"), noDelay())

	summary := s.Sync(context.Background())
	require.True(t, summary.RemoteListingFailed)
	require.Equal(t, []string{"1", "2"}, remote.created)
	require.Len(t, rec.Find("warning", report_sync_remote_ids), 1)
}

func TestSyncCancelled(t *testing.T) {
	remote := &fakeRemote{}
	s, _, _ := newTestSynchronizer(remote, writeSongs(t, "1", "2", "3"), noDelay())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary := s.Sync(ctx)
	require.Equal(t, 1, summary.Success)
	require.Equal(t, 2, summary.Failed)
}
