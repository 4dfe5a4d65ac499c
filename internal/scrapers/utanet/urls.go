package utanet

import (
	"fmt"
	"net/url"
	"strings"
)

// ArtistID returns the last path segment of an artist page url,
// ex. https://www.uta-net.com/artist/12795/ -> 12795
func ArtistID(catalogUrl string) (string, error) {
	link, err := url.Parse(catalogUrl)
	if err != nil {
		return "", err
	}
	segments := strings.Split(strings.TrimRight(link.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", fmt.Errorf("no artist id in %q", catalogUrl)
	}
	return id, nil
}

// ArtistUrl is the first listing page of an artist.
func ArtistUrl(baseUrl, artistId string) string {
	return fmt.Sprintf("%s/artist/%s/", strings.TrimRight(baseUrl, "/"), artistId)
}

func listingPagePath(artistId string, page int) string {
	return fmt.Sprintf("/artist/%s/0/%d/", artistId, page)
}

// ListingPageUrl returns the url of the nth (1-indexed) listing page. The first
// page is catalogUrl itself, later pages live under /artist/{id}/0/{page}/.
func ListingPageUrl(catalogUrl string, page int) (string, error) {
	if page <= 1 {
		return catalogUrl, nil
	}
	artistId, err := ArtistID(catalogUrl)
	if err != nil {
		return "", err
	}
	link, err := url.Parse(catalogUrl)
	if err != nil {
		return "", err
	}
	next := url.URL{
		Scheme: link.Scheme,
		Host:   link.Host,
		Path:   listingPagePath(artistId, page),
	}
	return next.String(), nil
}

// HasNextPage reports whether the pagination controls of a listing page link to page+1.
func HasNextPage(listing Listing, artistId string, page int) bool {
	want := listingPagePath(artistId, page+1)
	for _, href := range listing.PageLinks {
		if strings.Contains(href, want) {
			return true
		}
	}
	return false
}

// SongPath is the path of a song's detail page relative to the site root.
func SongPath(songId string) string {
	return fmt.Sprintf("/song/%s/", songId)
}
