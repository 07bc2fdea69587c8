package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	healthuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/health"
)

func healthCmd(with runWith) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the store and model backends",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, _ []string, s *services) error {
			report := s.health.Check(cmd.Context())

			names := make([]string, 0, len(report.Checks))
			for name := range report.Checks {
				names = append(names, name)
			}
			sort.Strings(names)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "status: %s\n", report.Status)
			for _, name := range names {
				fmt.Fprintf(w, "  %-24s %s\n", name, report.Checks[name])
			}
			if report.Status == healthuc.Unhealthy {
				return fmt.Errorf("chunk store unreachable")
			}
			return nil
		}),
	}
}
