package utanet

import (
	"context"
	"strings"

	"lyricsync/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Listing is what one artist listing page yields.
type Listing struct {
	// SongIDs in page order, may contain duplicates.
	SongIDs []string
	// PageLinks are the hrefs of the pagination controls.
	PageLinks []string
}

// songIdFromHref takes the path segment right before the trailing slash,
// ex. /song/253460/ -> 253460
func songIdFromHref(href string) (string, bool) {
	if !strings.Contains(href, "/song/") {
		return "", false
	}
	parts := strings.Split(href, "/")
	if len(parts) < 2 {
		return "", false
	}
	id := parts[len(parts)-2]
	if id == "" || id == "song" {
		return "", false
	}
	return id, true
}

func ParseListing(ctx context.Context, doc *goquery.Document) Listing {
	var listing Listing
	for _, a := range htmlutil.GetAnchors(ctx, doc.Find("a.py-2.py-lg-0")) {
		id, ok := songIdFromHref(a.Href)
		if !ok {
			continue
		}
		listing.SongIDs = append(listing.SongIDs, id)
	}
	for _, a := range htmlutil.GetAnchors(ctx, doc.Find("a.page-link")) {
		if a.Href == "" {
			continue
		}
		listing.PageLinks = append(listing.PageLinks, a.Href)
	}
	return listing
}
