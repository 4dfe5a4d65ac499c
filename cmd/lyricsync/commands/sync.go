package commands

import (
	"context"
	"fmt"

	"lyricsync/internal/chrono"
	"lyricsync/internal/notion"
	"lyricsync/internal/notionsync"
	"lyricsync/internal/table"
	"lyricsync/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	syncOut       string
	syncArtistId  string
	syncBatchSize int
	syncDelay     string
)

func addSyncFlags(cmd *cobra.Command) {
	def := notionsync.DefaultOptions()
	cmd.Flags().IntVar(&syncBatchSize, "batch-size", def.BatchSize, "The pause is doubled after every batch of uploads.")
	cmd.Flags().StringVar(&syncDelay, "delay", def.Delay.String(), "The pause between two uploads.")
}

func init() {
	syncCmd.Flags().StringVar(&syncOut, "out", "", "The song table (default lyrics_data_<artist>.csv).")
	syncCmd.Flags().StringVar(&syncArtistId, "artist-id", "", "The artist id, instead of an artist url.")
	addSyncFlags(syncCmd)
	rootCmd.AddCommand(syncCmd)
}

// syncOptions applies the flags that were set explicitly over the config file.
func syncOptions(cmd *cobra.Command) (notionsync.Options, error) {
	opts, err := config.syncOptions()
	if err != nil {
		return opts, err
	}
	if cmd.Flags().Changed("batch-size") {
		opts.BatchSize = syncBatchSize
	}
	if cmd.Flags().Changed("delay") {
		delay, err := parseDuration("--delay", syncDelay, opts.Delay)
		if err != nil {
			return opts, err
		}
		opts.Delay = delay
	}
	return opts, nil
}

func runSync(ctx context.Context, cmd *cobra.Command, outPath string) error {
	opts, err := syncOptions(cmd)
	if err != nil {
		return err
	}
	songs, err := table.OpenSongs(outPath)
	if err != nil {
		return err
	}
	defer songs.Close()

	tel := telemetry.SlogAPI{}
	notionCfg := config.notionConfig()
	clock := chrono.NewStandardImpl()
	remote := notion.NewClient(notionCfg, clock, tel, httpOutput)

	summary := notionsync.New(
		notionsync.Credentials{Token: notionCfg.Token, DatabaseID: notionCfg.DatabaseID},
		remote,
		songs,
		opts,
		clock,
		tel,
	).Sync(ctx)
	if summary.Precondition != notionsync.PreconditionOK {
		if summary.PreconditionErr != nil {
			return fmt.Errorf("sync: %s: %w", summary.Precondition, summary.PreconditionErr)
		}
		return fmt.Errorf("sync: %s (set %s and %s)", summary.Precondition, envNotionToken, envNotionDatabaseID)
	}
	renderSync(cmd.OutOrStdout(), outPath, summary)
	return ctx.Err()
}

var syncCmd = &cobra.Command{
	Use:   "sync [<artist-url> | --artist-id <id> | --out <path>] [--batch-size 10] [--delay 350ms]",
	Short: "Uploads every harvested song that is not in the Notion database yet.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := syncOut
		if outPath == "" {
			a, err := artistFromArgs(args, syncArtistId)
			if err != nil {
				return fmt.Errorf("%w, or --out", err)
			}
			outPath = defaultOutPath(a.ID)
		}
		return runSync(cmd.Context(), cmd, outPath)
	},
}
