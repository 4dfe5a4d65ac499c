package commands

import (
	"fmt"
	"net/url"

	"lyricsync/internal/scrapers/utanet"
	"lyricsync/internal/telemetry"
)

// artist is the artist a command works on, either from an artist url or --artist-id.
type artist struct {
	ID         string
	CatalogUrl string
}

func artistFromUrl(catalogUrl string) (artist, error) {
	id, err := utanet.ArtistID(catalogUrl)
	if err != nil {
		return artist{}, err
	}
	return artist{ID: id, CatalogUrl: catalogUrl}, nil
}

func artistFromArgs(args []string, artistId string) (artist, error) {
	if len(args) > 0 {
		return artistFromUrl(args[0])
	}
	if artistId != "" {
		baseUrl := config.Scraper.BaseUrl
		if baseUrl == "" {
			baseUrl = utanet.DefaultBaseUrl
		}
		return artist{ID: artistId, CatalogUrl: utanet.ArtistUrl(baseUrl, artistId)}, nil
	}
	return artist{}, fmt.Errorf("an artist url or --artist-id is required")
}

func defaultIdsPath(artistId string) string {
	return fmt.Sprintf("song_ids_%s.csv", artistId)
}

func defaultOutPath(artistId string) string {
	return fmt.Sprintf("lyrics_data_%s.csv", artistId)
}

// orDefault returns path, or def when path is empty.
func orDefault(path, def string) string {
	if path != "" {
		return path
	}
	return def
}

func newScraper(a artist, tel telemetry.API) (*utanet.Client, error) {
	delay, err := config.politenessDelay()
	if err != nil {
		return nil, err
	}
	baseUrl := config.Scraper.BaseUrl
	if baseUrl == "" {
		catalog, err := url.Parse(a.CatalogUrl)
		if err != nil {
			return nil, err
		}
		baseUrl = (&url.URL{Scheme: catalog.Scheme, Host: catalog.Host}).String()
	}
	return utanet.NewClient(utanet.ClientOptions{
		BaseUrl:          baseUrl,
		PolitenessDelay:  delay,
		CloudflareBypass: config.Scraper.CloudflareBypass,
		InstrumentOutput: httpOutput,
	}, tel)
}
