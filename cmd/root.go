// Package cmd defines and implements the CLI commands for the syllabus
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/syllabus-crawler/internal/app"
	"github.com/JakeFAU/syllabus-crawler/internal/config"
	"github.com/JakeFAU/syllabus-crawler/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. Tests replace it.
var newApp = app.New

// cli carries the state shared by every command of one invocation.
type cli struct {
	cfgFile     string
	metricsAddr string
	// overrides adjusts the loaded config from command-specific flags.
	overrides []func(*cobra.Command, *config.Config)
	app       *app.App
	out       io.Writer
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

// newRootCmd creates and configures the root command.
func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syllabus",
		Short: "Scrapes the bilingual course syllabus into per-department artifacts.",
		Long: `syllabus crawls the university course catalog in English and Japanese,
assembles one normalized record per course and publishes a JSON artifact
per department for downstream consumers.`,
		SilenceUsage: true,

		// Runs after flag parsing and before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if c.metricsAddr != "" {
				cfg.Metrics.Addr = c.metricsAddr
			}
			for _, apply := range c.overrides {
				apply(cmd, &cfg)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger, err := logging.NewWithOptions(logging.Options{
				Development: cfg.Logging.Development,
				File:        cfg.Logging.File,
				MaxSizeMB:   cfg.Logging.MaxSizeMB,
				MaxBackups:  cfg.Logging.MaxBackups,
				MaxAgeDays:  cfg.Logging.MaxAgeDays,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			c.app = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (YAML); SYLLABUS_* env vars override it")
	cmd.PersistentFlags().StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.AddCommand(newScrapeCmd(c))
	cmd.AddCommand(newSyncCmd(c))
	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// run executes the command tree and always releases application services.
func run(ctx context.Context, args []string, out io.Writer) error {
	c := &cli{out: out}
	defer c.close()
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		// cobra has already printed err.
		os.Exit(1)
	}
}
