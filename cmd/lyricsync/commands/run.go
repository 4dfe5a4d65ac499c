package commands

import (
	"github.com/spf13/cobra"
)

var (
	runIds      string
	runOut      string
	runWithSync bool
)

func init() {
	runCmd.Flags().StringVar(&runIds, "ids", "", "The song id table (default song_ids_<artist>.csv).")
	runCmd.Flags().StringVar(&runOut, "out", "", "The song table (default lyrics_data_<artist>.csv).")
	runCmd.Flags().BoolVar(&runWithSync, "sync", false, "Upload to Notion after harvesting.")
	addSyncFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <artist-url> [--sync]",
	Short: "Runs discover, harvest and optionally sync for one artist.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := artistFromUrl(args[0])
		if err != nil {
			return err
		}
		idsPath := orDefault(runIds, defaultIdsPath(a.ID))
		outPath := orDefault(runOut, defaultOutPath(a.ID))

		ctx := cmd.Context()
		err = runDiscover(ctx, cmd, a, idsPath)
		if err != nil {
			return err
		}
		err = runHarvest(ctx, cmd, a, idsPath, outPath)
		if err != nil {
			return err
		}
		if !runWithSync {
			return nil
		}
		return runSync(ctx, cmd, outPath)
	},
}
