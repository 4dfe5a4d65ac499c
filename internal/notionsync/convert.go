package notionsync

import (
	"math"
	"strconv"
	"strings"
	"time"

	"lyricsync/internal/notion"
	"lyricsync/internal/table"
	"lyricsync/lib/textutil"
)

// database property names, they match the song table columns
const (
	propSongID      = "song_id"
	propTitle       = "title"
	propArtist      = "artist"
	propMainTheme   = "main_theme"
	propLyricist    = "lyricist"
	propComposer    = "composer"
	propArranger    = "arranger"
	propReleaseDate = "release_date"
	propCoverURL    = "cover_url"
	propLyrics      = "lyrics"
)

const releaseDateLayout = "2006-01-02"

var urlSchemes = []string{"http://", "https://"}

// ConvertReport describes lossy conversions.
type ConvertReport struct {
	// Truncated is true when the lyrics did not fit into the maximum number of text chunks.
	Truncated bool
}

func songIDNumber(id string) *float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(id), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// normalizeReleaseDate turns 2018/03/14 into 2018-03-14, anything that is not a valid
// calendar date comes back as "".
func normalizeReleaseDate(raw string) string {
	if !textutil.IsPresent(raw) {
		return ""
	}
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "/", "-")
	_, err := time.Parse(releaseDateLayout, normalized)
	if err != nil {
		return ""
	}
	return normalized
}

func isUrl(value string) bool {
	for _, scheme := range urlSchemes {
		if strings.HasPrefix(value, scheme) {
			return true
		}
	}
	return false
}

// ConvertSong maps a song row to database properties.
//
//   - song_id is a number, null when it does not parse
//   - free text fields are left out when textutil.IsPresent is false
//   - release_date is always sent, null when it is not a valid date
//   - cover_url is only sent when it is an http(s) url
//   - lyrics are split into text objects of at most notion.MaxTextLength characters
func ConvertSong(song table.Song) (notion.Properties, ConvertReport) {
	var report ConvertReport
	props := notion.Properties{
		propSongID:      notion.NumberProperty(songIDNumber(song.SongID)),
		propTitle:       notion.TitleProperty(strings.TrimSpace(song.Title)),
		propReleaseDate: notion.DateProperty(normalizeReleaseDate(song.ReleaseDate)),
	}

	optionalText := []struct {
		name  string
		value string
	}{
		{propArtist, song.Artist},
		{propMainTheme, song.MainTheme},
		{propLyricist, song.Lyricist},
		{propComposer, song.Composer},
		{propArranger, song.Arranger},
	}
	for _, field := range optionalText {
		if !textutil.IsPresent(field.value) {
			continue
		}
		props[field.name] = notion.RichTextProperty(strings.TrimSpace(field.value))
	}

	cover := strings.TrimSpace(song.CoverURL)
	if cover != "" && isUrl(cover) {
		props[propCoverURL] = notion.ExternalFileProperty("cover", cover)
	}

	if song.Lyrics != "" {
		chunks, truncated := textutil.Chunk(song.Lyrics, notion.MaxTextLength, notion.MaxRichTextItems)
		props[propLyrics] = notion.RichTextProperty(chunks...)
		report.Truncated = truncated
	}

	return props, report
}
