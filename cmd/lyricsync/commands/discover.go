package commands

import (
	"context"
	"fmt"

	"lyricsync/internal/discover"
	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"

	"github.com/spf13/cobra"
)

var discoverIds string

func init() {
	discoverCmd.Flags().StringVar(&discoverIds, "ids", "", "The song id table (default song_ids_<artist>.csv).")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(ctx context.Context, cmd *cobra.Command, a artist, idsPath string) error {
	tel := telemetry.SlogAPI{}
	scraper, err := newScraper(a, tel)
	if err != nil {
		return err
	}
	ids, err := table.OpenIdentifiers(idsPath)
	if err != nil {
		return err
	}
	defer ids.Close()

	res, err := discover.New(ids, scraper, tel).Discover(ctx, a.CatalogUrl)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	renderDiscover(cmd.OutOrStdout(), idsPath, res)
	return nil
}

var discoverCmd = &cobra.Command{
	Use:   "discover <artist-url> [--ids <path>]",
	Short: "Collects the song ids of an artist and merges them into the id table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := artistFromUrl(args[0])
		if err != nil {
			return err
		}
		return runDiscover(cmd.Context(), cmd, a, orDefault(discoverIds, defaultIdsPath(a.ID)))
	},
}
