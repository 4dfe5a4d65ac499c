package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

func redact(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the effective configuration, secrets are redacted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		delay, err := config.politenessDelay()
		if err != nil {
			return err
		}
		opts, err := syncOptions(cmd)
		if err != nil {
			return err
		}
		notionCfg := config.notionConfig()

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetTitle(configPath)
		t.AppendHeader(table.Row{"Key", "Value"})
		t.AppendRows([]table.Row{
			{"scraper.base_url", orDefault(config.Scraper.BaseUrl, "<artist url host>")},
			{"scraper.politeness_delay", delay},
			{"scraper.cloudflare_bypass", config.Scraper.CloudflareBypass},
			{"notion.token", redact(notionCfg.Token)},
			{"notion.database_id", orDefault(notionCfg.DatabaseID, "<unset>")},
			{"sync.batch_size", opts.BatchSize},
			{"sync.delay", opts.Delay},
			{"sync.attempts", opts.Attempts},
			{"dump_http", orDefault(dumpHttp, "<off>")},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
