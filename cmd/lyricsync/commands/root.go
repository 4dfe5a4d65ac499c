package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lyricsync/lib/configutil"
	"lyricsync/lib/restyutil"
	"lyricsync/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
	dumpHttp   string
)

// loaded in PersistentPreRunE
var (
	config     Config
	httpOutput restyutil.InstrumentOutput
)

var rootCmd = &cobra.Command{
	Use:   "lyricsync",
	Short: "lyricsync scrapes an artist's lyrics from uta-net and mirrors them into a Notion database.",
	Long: `lyricsync works in three resumable stages:

  discover  collect the song ids of an artist into song_ids_<artist>.csv
  harvest   scrape every song that is missing from lyrics_data_<artist>.csv
  sync      upload every song that is missing from the Notion database

Every stage only does the work that is left, so it is safe to rerun after a crash.
Credentials are read from NOTION_TOKEN and NOTION_DATABASE_ID (.env and .env.local
are loaded first), the config file is only used when they are unset.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(debug)

		err := configutil.LoadDotenv(".")
		if err != nil {
			return err
		}
		config, err = loadConfig(configPath)
		if err != nil {
			return err
		}

		err = telemetry.SetupFromEnv(cmd.Context(), "lyricsync")
		if err != nil {
			slog.Warn("telemetry setup failed", "err", err)
		}
		telemetry.InstrumentPerfStats(cmd.Context(), time.Second*15)

		httpOutput = nil
		if dumpHttp != "" {
			output, err := restyutil.NewFilesystemOutput(dumpHttp, time.Now())
			if err != nil {
				return fmt.Errorf("dump http: %w", err)
			}
			slog.Info("dumping http messages", "dir", output.Directory())
			httpOutput = output
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "lyricsync.json5", "The json5 config file, lyricsync.local.json5 overrides it.")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging.")
	flags.StringVar(&dumpHttp, "dump-http", "", "Write every http request and response to a new subdirectory of this directory (needs --debug).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
