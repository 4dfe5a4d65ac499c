package commands

import (
	"context"
	"fmt"

	"lyricsync/internal/harvest"
	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	harvestIds      string
	harvestOut      string
	harvestArtistId string
)

func init() {
	harvestCmd.Flags().StringVar(&harvestIds, "ids", "", "The song id table (default song_ids_<artist>.csv).")
	harvestCmd.Flags().StringVar(&harvestOut, "out", "", "The song table (default lyrics_data_<artist>.csv).")
	harvestCmd.Flags().StringVar(&harvestArtistId, "artist-id", "", "The artist id, instead of an artist url.")
	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(ctx context.Context, cmd *cobra.Command, a artist, idsPath, outPath string) error {
	idTable, err := table.OpenIdentifiers(idsPath)
	if err != nil {
		return err
	}
	defer idTable.Close()
	ids, err := idTable.Load(ctx)
	if table.IsNotExist(err) {
		return fmt.Errorf("%s does not exist, run discover first", idsPath)
	}
	if err != nil {
		return fmt.Errorf("load ids: %w", err)
	}

	tel := telemetry.SlogAPI{}
	scraper, err := newScraper(a, tel)
	if err != nil {
		return err
	}
	songs, err := table.OpenSongs(outPath)
	if err != nil {
		return err
	}
	defer songs.Close()

	res, err := harvest.New(scraper, songs, tel).Harvest(ctx, ids)
	renderHarvest(cmd.OutOrStdout(), outPath, res)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	return nil
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [<artist-url> | --artist-id <id>] [--ids <path>] [--out <path>]",
	Short: "Scrapes every discovered song that is not in the song table yet.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := artistFromArgs(args, harvestArtistId)
		if err != nil {
			return err
		}
		return runHarvest(
			cmd.Context(), cmd, a,
			orDefault(harvestIds, defaultIdsPath(a.ID)),
			orDefault(harvestOut, defaultOutPath(a.ID)),
		)
	},
}
