package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/headlines/internal/app"
	"github.com/JakeFAU/headlines/internal/config"
	"github.com/JakeFAU/headlines/internal/headlines"
	"github.com/JakeFAU/headlines/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// application is what the subcommands need from the wired services.
type application interface {
	Handler() http.Handler
	TriggerScrape(ctx context.Context) (headlines.BatchResult, error)
	Close(ctx context.Context) error
}

// newApp is swapped out in tests.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (application, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type runtimeKey struct{}

// runtime is built once per invocation and handed to subcommands via the
// command context.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	app    application
}

func runtimeFrom(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, fmt.Errorf("application services are not initialized")
	}
	return rt, nil
}

// withRuntime hands the runtime to run and closes it afterwards, including
// when run fails.
func withRuntime(run func(cmd *cobra.Command, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		rt, err := runtimeFrom(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, rt.close()) }()
		return run(cmd, rt)
	}
}

func (rt *runtime) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	closeErr := rt.app.Close(ctx)
	if syncErr := rt.logger.Sync(); syncErr != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close backends: %w", closeErr)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "headlines",
		Short: "Scrape news headlines and annotate them with notes.",
		Long: `headlines fetches a news listing page, stores every article it finds,
and serves an HTTP API for reading articles and attaching notes to them.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("initialize application services: %w", err)
			}
			rt := &runtime{cfg: cfg, logger: logger, app: a}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")
	cmd.AddCommand(newServeCmd(), newScrapeCmd())
	return cmd
}
