package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func reembedCmd(with runWith) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Replace fallback vectors with primary model vectors",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, _ []string, s *services) error {
			report, err := s.reembedder.Reembed(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("reembed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d upgraded=%d still_fallback=%d failed=%d stale=%d\n",
				report.Scanned, report.Upgraded, report.StillFallback, report.Failed, report.Stale)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of chunks to process")
	return cmd
}
