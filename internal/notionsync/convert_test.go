package notionsync

import (
	"strings"
	"testing"

	"lyricsync/internal/notion"
	"lyricsync/internal/table"

	"github.com/stretchr/testify/require"
)

func TestConvertNonNumericID(t *testing.T) {
	props, _ := ConvertSong(table.Song{SongID: "abc", Title: "x"})

	require.Contains(t, props, propSongID)
	require.Equal(t, notion.TypeNumber, props[propSongID].Type)
	require.Nil(t, props[propSongID].Number)
}

func TestConvertNumericID(t *testing.T) {
	props, _ := ConvertSong(table.Song{SongID: "253460"})
	require.NotNil(t, props[propSongID].Number)
	require.Equal(t, 253460.0, *props[propSongID].Number)

	props, _ = ConvertSong(table.Song{SongID: "NaN"})
	require.Nil(t, props[propSongID].Number)
}

func TestConvertOmitsPlaceholders(t *testing.T) {
	props, _ := ConvertSong(table.Song{
		SongID:    "1",
		Artist:    "",
		MainTheme: "NaN",
		Lyricist:  " none ",
		Composer:  "NULL",
		Arranger:  "米津玄師",
	})

	require.NotContains(t, props, propArtist)
	require.NotContains(t, props, propMainTheme)
	require.NotContains(t, props, propLyricist)
	require.NotContains(t, props, propComposer)
	require.Equal(t, "米津玄師", props[propArranger].PlainText())
}

func TestConvertReleaseDate(t *testing.T) {
	testCases := []struct {
		raw      string
		expected *notion.Date
	}{
		{"2018/03/14", &notion.Date{Start: "2018-03-14"}},
		{"2018-03-14", &notion.Date{Start: "2018-03-14"}},
		{"2018/02/30", nil},
		{"2018/3/14", nil},
		{"", nil},
		{"nan", nil},
	}

	for _, test := range testCases {
		props, _ := ConvertSong(table.Song{SongID: "1", ReleaseDate: test.raw})
		require.Contains(t, props, propReleaseDate, test.raw)
		require.Equal(t, test.expected, props[propReleaseDate].Date, test.raw)
	}
}

func TestConvertCoverUrl(t *testing.T) {
	props, _ := ConvertSong(table.Song{SongID: "1", CoverURL: "https://example.com/a.jpg"})
	require.Equal(t, "https://example.com/a.jpg", props[propCoverURL].Files[0].External.Url)

	for _, cover := range []string{"", "//example.com/a.jpg", "/img/a.jpg", "ftp://example.com/a.jpg"} {
		props, _ := ConvertSong(table.Song{SongID: "1", CoverURL: cover})
		require.NotContains(t, props, propCoverURL, cover)
	}
}

func TestConvertLyricsChunks(t *testing.T) {
	lyrics := strings.Repeat("a", 2000) + strings.Repeat("b", 2000) + strings.Repeat("c", 500)
	props, report := ConvertSong(table.Song{SongID: "1", Lyrics: lyrics})

	require.False(t, report.Truncated)
	text := props[propLyrics].Text
	require.Len(t, text, 3)
	require.Len(t, text[0].Text.Content, 2000)
	require.Len(t, text[1].Text.Content, 2000)
	require.Len(t, text[2].Text.Content, 500)
	require.Equal(t, lyrics, props[propLyrics].PlainText())
}

func TestConvertLyricsTruncated(t *testing.T) {
	lyrics := strings.Repeat("歌", notion.MaxTextLength*notion.MaxRichTextItems+1)
	props, report := ConvertSong(table.Song{SongID: "1", Lyrics: lyrics})

	require.True(t, report.Truncated)
	require.Len(t, props[propLyrics].Text, notion.MaxRichTextItems)
}

func TestConvertEmptyLyrics(t *testing.T) {
	props, _ := ConvertSong(table.Song{SongID: "1"})
	require.NotContains(t, props, propLyrics)
	require.Equal(t, notion.TypeTitle, props[propTitle].Type)
}
