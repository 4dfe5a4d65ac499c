package harvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	broken  map[string]bool
	fetched []string
}

func (f *fakeScraper) FetchSong(ctx context.Context, songId string) (table.Song, error) {
	f.fetched = append(f.fetched, songId)
	if f.broken[songId] {
		return table.Song{}, errors.New("502 bad gateway")
	}
	return table.Song{
		SongID: songId,
		Title:  "title " + songId,
		Lyrics: "line one\nline two",
	}, nil
}

func newTable(t *testing.T) table.CSVSongTable {
	return table.CSVSongTable{Path: filepath.Join(t.TempDir(), "lyrics_data.csv")}
}

func storedIds(t *testing.T, songs table.SongTable) []string {
	ids, err := songs.Identifiers(context.Background())
	require.NoError(t, err)
	return ids
}

func TestHarvestAppendsInInputOrder(t *testing.T) {
	songs := newTable(t)
	scraper := &fakeScraper{}

	res, err := New(scraper, songs, telemetry.NewRecorder()).Harvest(context.Background(), []string{"3", "1", "2"})
	require.NoError(t, err)
	require.Equal(t, Result{Total: 3, Harvested: 3}, res)
	require.Equal(t, []string{"3", "1", "2"}, storedIds(t, songs))

	stored, err := songs.Songs(context.Background())
	require.NoError(t, err)
	require.Equal(t, "line one\nline two", stored[0].Lyrics)

	raw, err := os.ReadFile(songs.Path)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(raw), strings.Join(table.Columns, ",")))
}

func TestHarvestResumes(t *testing.T) {
	songs := newTable(t)
	first := &fakeScraper{}
	_, err := New(first, songs, telemetry.NewRecorder()).Harvest(context.Background(), []string{"1", "2"})
	require.NoError(t, err)

	second := &fakeScraper{}
	res, err := New(second, songs, telemetry.NewRecorder()).Harvest(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Equal(t, []string{"3"}, second.fetched)
	require.Equal(t, Result{Total: 1, Harvested: 1, Skipped: 2}, res)
	require.Equal(t, []string{"1", "2", "3"}, storedIds(t, songs))
}

func TestHarvestResumesAfterTornRow(t *testing.T) {
	ctx := context.Background()
	songs := newTable(t)
	_, err := New(&fakeScraper{}, songs, telemetry.NewRecorder()).Harvest(ctx, []string{"1", "2"})
	require.NoError(t, err)

	// killed while writing the lyrics of song 3
	f, err := os.OpenFile(songs.Path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`3,title 3,,,,,,,,"half written lyr`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	resumed := &fakeScraper{}
	res, err := New(resumed, songs, telemetry.NewRecorder()).Harvest(ctx, []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Equal(t, []string{"3"}, resumed.fetched)
	require.Equal(t, Result{Total: 1, Harvested: 1, Skipped: 2}, res)

	again := &fakeScraper{}
	_, err = New(again, songs, telemetry.NewRecorder()).Harvest(ctx, []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Empty(t, again.fetched)

	require.Equal(t, []string{"1", "2", "3"}, storedIds(t, songs))
	stored, err := songs.Songs(ctx)
	require.NoError(t, err)
	require.Equal(t, "line one\nline two", stored[2].Lyrics)
}

func TestHarvestNothingToDo(t *testing.T) {
	songs := newTable(t)
	_, err := New(&fakeScraper{}, songs, telemetry.NewRecorder()).Harvest(context.Background(), []string{"1"})
	require.NoError(t, err)

	scraper := &fakeScraper{}
	rec := telemetry.NewRecorder()
	res, err := New(scraper, songs, rec).Harvest(context.Background(), []string{"1"})
	require.NoError(t, err)
	require.Equal(t, Result{Skipped: 1}, res)
	require.Empty(t, scraper.fetched)
	require.Len(t, rec.Find("debug", "nothing to do"), 1)
}

func TestHarvestSkipsFailures(t *testing.T) {
	songs := newTable(t)
	scraper := &fakeScraper{broken: map[string]bool{"2": true}}
	rec := telemetry.NewRecorder()

	res, err := New(scraper, songs, rec).Harvest(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Equal(t, Result{Total: 3, Harvested: 2, Failed: 1}, res)
	require.Equal(t, []string{"1", "3"}, storedIds(t, songs))
	require.Len(t, rec.Find("warning", report_harvest_fetch), 1)

	// the failed song is the only one retried by the next run
	retry := &fakeScraper{}
	_, err = New(retry, songs, telemetry.NewRecorder()).Harvest(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, retry.fetched)
}

func TestHarvestCollapsesDuplicates(t *testing.T) {
	scraper := &fakeScraper{}
	res, err := New(scraper, newTable(t), telemetry.NewRecorder()).Harvest(context.Background(), []string{"1", "1", "2"})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, scraper.fetched)
	require.Equal(t, 2, res.Harvested)
}

func TestHarvestCorruptTableIsEmpty(t *testing.T) {
	songs := newTable(t)
	require.NoError(t, os.WriteFile(songs.Path, []byte("song_id,title\n1,o\"ops\n2,x\n"), 0644))
	scraper := &fakeScraper{}
	rec := telemetry.NewRecorder()

	res, err := New(scraper, songs, rec).Harvest(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, scraper.fetched)
	require.Equal(t, 2, res.Total)
	require.Len(t, rec.Find("warning", report_harvest_load), 1)
}

func TestHarvestCorruptDatabaseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics.db")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a database ", 100)), 0644))
	songs, err := table.OpenSongs(path)
	require.NoError(t, err)
	defer songs.Close()
	scraper := &fakeScraper{}
	rec := telemetry.NewRecorder()

	_, err = New(scraper, songs, rec).Harvest(context.Background(), []string{"1"})
	require.ErrorContains(t, err, "init song table")
	require.Empty(t, scraper.fetched)
	require.Len(t, rec.Find("warning", report_harvest_load), 1)
}

func TestHarvestCancelled(t *testing.T) {
	songs := newTable(t)
	scraper := &fakeScraper{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(scraper, songs, telemetry.NewRecorder()).Harvest(ctx, []string{"1", "2"})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, res.Harvested)
	require.Empty(t, scraper.fetched)
}
