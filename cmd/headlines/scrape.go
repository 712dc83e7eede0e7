package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape and print the batch result as JSON",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime) error {
			result, err := rt.app.TriggerScrape(cmd.Context())
			if err != nil {
				return fmt.Errorf("scrape %s: %w", rt.cfg.Scrape.SourceURL, err)
			}
			rt.logger.Info("scrape finished",
				zap.Int("created", result.Created),
				zap.Int("failed", result.Failed),
				zap.Int("skipped", result.Skipped),
			)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}),
	}
}
