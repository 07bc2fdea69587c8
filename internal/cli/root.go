// Package cli implements the faqctl commands on top of the in-process services.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/app"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/config"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
	logpkg "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/logger"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/telemetry"
	batchuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/batch"
	documentuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/document"
	healthuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/health"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/version"
)

// services is what the commands need from the wired application.
type services struct {
	asker interface {
		Ask(ctx context.Context, query string) answer.GenerationResponse
	}
	indexer interface {
		Index(ctx context.Context, req documentuc.IndexRequest) (documentuc.IndexReport, error)
	}
	reembedder interface {
		Reembed(ctx context.Context, limit int) (batchuc.Report, error)
	}
	health interface {
		Check(ctx context.Context) healthuc.Report
	}
	close func()
}

// loader builds the services for one command run.
type loader func(ctx context.Context, verbose bool) (*services, error)

// NewRootCmd returns the faqctl root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(loadServices)
}

func newRootCmd(load loader) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "faqctl",
		Short:         "Ad-policy FAQ assistant CLI",
		Long:          "Ingest documents, ask questions and re-embed fallback vectors using the configured stores and backends.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	var withServices runWith = func(run func(cmd *cobra.Command, args []string, s *services) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := load(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			defer s.close()
			return run(cmd, args, s)
		}
	}

	root.AddCommand(askCmd(withServices))
	root.AddCommand(ingestCmd(withServices))
	root.AddCommand(reembedCmd(withServices))
	root.AddCommand(healthCmd(withServices))
	return root
}

// runWith adapts a command body that needs services into a cobra RunE.
type runWith func(run func(cmd *cobra.Command, args []string, s *services) error) func(*cobra.Command, []string) error

func loadServices(ctx context.Context, verbose bool) (*services, error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	flush, _ := telemetry.Init(telemetry.Config{
		DSN:         cfg.Telemetry.SentryDSN,
		Environment: cfg.Telemetry.Environment,
		Release:     version.Version,
	}, logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		flush()
		return nil, fmt.Errorf("initialize: %w", err)
	}

	return &services{
		asker:      a.RAG,
		indexer:    a.Documents,
		reembedder: a.Reembed,
		health:     a.Health,
		close: func() {
			a.Close()
			flush()
			_ = logger.Sync()
		},
	}, nil
}
