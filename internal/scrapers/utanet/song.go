package utanet

import (
	"fmt"
	"strings"

	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"
	"lyricsync/lib/htmlutil"
	"lyricsync/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const report_parse_song = "parse-song"

const releaseDateLabel = "発売日："

// songPage holds the regions of a song detail page that extractors look into,
// any of them may be an empty selection.
type songPage struct {
	doc     *goquery.Document
	details *goquery.Selection
	credits *goquery.Selection
}

func newSongPage(doc *goquery.Document) songPage {
	details := doc.Find("div.blur-filter.row.py-3").First()
	return songPage{
		doc:     doc,
		details: details,
		credits: details.Find("p.ms-2.ms-md-3.detail.mb-0").First(),
	}
}

// an extractor returns the value of a single field and whether it was present.
type extractor func(page songPage) (string, bool)

func textOf(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.First().Text()), true
}

func extractTitle(page songPage) (string, bool) {
	title := page.details.Find("h2.ms-2.ms-md-3.kashi-title")
	if title.Length() == 0 {
		title = page.doc.Find("h2.ms-2")
	}
	return textOf(title)
}

func extractArtist(page songPage) (string, bool) {
	return textOf(page.details.Find("h3.ms-2.ms-md-3"))
}

func extractMainTheme(page songPage) (string, bool) {
	theme, ok := textOf(page.details.Find("p.ms-2.ms-md-3.mb-0:not(.detail)"))
	if !ok {
		return "", false
	}
	return textutil.StripNBSP(theme), true
}

// creditLink finds the first credit link whose href contains marker (ex. "/lyricist/").
func creditLink(marker string) extractor {
	return func(page songPage) (string, bool) {
		link := page.credits.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
			return strings.Contains(a.AttrOr("href", ""), marker)
		})
		return textOf(link)
	}
}

func extractReleaseDate(page songPage) (string, bool) {
	if page.credits.Length() == 0 {
		return "", false
	}
	text := page.credits.Text()
	_, after, found := strings.Cut(text, releaseDateLabel)
	if !found {
		return "", false
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

func extractCoverUrl(page songPage) (string, bool) {
	src, ok := page.details.Find("img.img-fluid").First().Attr("src")
	if !ok || src == "" {
		return "", false
	}
	return src, true
}

func extractLyrics(page songPage) (string, bool) {
	area := page.doc.Find("div#kashi_area").First()
	if area.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(htmlutil.GetTextWithBreaks(area)), true
}

// runExtractor isolates a single extractor, a panic inside it only loses that field.
func runExtractor(field string, page songPage, fn extractor, tel telemetry.API) (value string) {
	defer func() {
		if r := recover(); r != nil {
			tel.ReportBroken(report_parse_song, fmt.Errorf("extract %s: %v", field, r))
			value = ""
		}
	}()
	value, ok := fn(page)
	if !ok {
		tel.ReportDebug("field absent", field)
		return ""
	}
	return value
}

// ParseSong extracts every field of a song detail page. Each field is extracted on
// its own, so a missing or malformed region only empties the fields that depend on it.
func ParseSong(songId string, doc *goquery.Document, tel telemetry.API) table.Song {
	page := newSongPage(doc)
	tel = telemetry.NewScopedAPI(songId, tel)
	return table.Song{
		SongID:      songId,
		Title:       runExtractor("title", page, extractTitle, tel),
		Artist:      runExtractor("artist", page, extractArtist, tel),
		MainTheme:   runExtractor("main_theme", page, extractMainTheme, tel),
		Lyricist:    runExtractor("lyricist", page, creditLink("/lyricist/"), tel),
		Composer:    runExtractor("composer", page, creditLink("/composer/"), tel),
		Arranger:    runExtractor("arranger", page, creditLink("/arranger/"), tel),
		ReleaseDate: runExtractor("release_date", page, extractReleaseDate, tel),
		CoverURL:    runExtractor("cover_url", page, extractCoverUrl, tel),
		Lyrics:      runExtractor("lyrics", page, extractLyrics, tel),
	}
}
