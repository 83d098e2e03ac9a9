package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/syllabus-crawler/internal/catalog"
	"github.com/JakeFAU/syllabus-crawler/internal/config"
	"github.com/JakeFAU/syllabus-crawler/internal/crawler"
)

type scrapeOptions struct {
	workers  int
	strategy string
	all      bool
	progress bool
}

// newScrapeCmd creates the 'scrape' subcommand.
func newScrapeCmd(c *cli) *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape [DEPT...]",
		Short: "Crawl departments and publish their artifacts",
		Long: `Crawls every course of the named departments and publishes one artifact
per department. Without arguments the departments listed under
crawler.departments are scraped; --all scrapes every known department.
A failing department does not stop the others, but the command exits
non-zero when any department failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, c, opts, args)
		},
	}
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent requests per department (overrides crawler.workers)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "crawl strategy: workers or overlap (overrides crawler.strategy)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "scrape every known department")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "render progress bars")

	c.overrides = append(c.overrides, func(cmd *cobra.Command, cfg *config.Config) {
		if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
			cfg.Crawler.Workers = opts.workers
		}
		if f := cmd.Flags().Lookup("strategy"); f != nil && f.Changed {
			cfg.Crawler.Strategy = opts.strategy
		}
	})
	return cmd
}

func departments(args []string, all bool, configured []string) ([]string, error) {
	var out []string
	switch {
	case all && len(args) > 0:
		return nil, errors.New("--all cannot be combined with department arguments")
	case all:
		return catalog.Departments(), nil
	case len(args) > 0:
		out = args
	default:
		out = configured
	}
	if len(out) == 0 {
		return nil, errors.New("no departments given; pass DEPT arguments, --all, or set crawler.departments")
	}
	for _, dept := range out {
		if _, err := catalog.LookupSchool(dept); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func runScrape(cmd *cobra.Command, c *cli, opts *scrapeOptions, args []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := a.Logger()
	depts, err := departments(args, opts.all, a.Config().Crawler.Departments)
	if err != nil {
		return err
	}

	var failed []string
	for _, dept := range depts {
		if cmd.Context().Err() != nil {
			failed = append(failed, dept)
			continue
		}
		if err := scrapeOne(cmd.Context(), c, opts, dept); err != nil {
			logger.Error("department failed", zap.String("department", dept), zap.Error(err))
			failed = append(failed, dept)
		}
	}

	logger.Info("scrape finished",
		zap.Int("departments", len(depts)),
		zap.Strings("failed", failed))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d departments failed: %v", len(failed), len(depts), failed)
	}
	return nil
}

func scrapeOne(ctx context.Context, c *cli, opts *scrapeOptions, dept string) error {
	var engineOpts []crawler.Option
	if opts.progress {
		bars := &progressRenderer{department: dept, out: c.out}
		defer bars.finish()
		engineOpts = append(engineOpts, crawler.WithProgress(bars.update))
	}
	engine, err := c.app.NewEngine(engineOpts...)
	if err != nil {
		return err
	}
	runner, err := c.app.NewRunner(engine)
	if err != nil {
		return err
	}
	report, err := runner.Run(ctx, dept)
	if err != nil {
		return err
	}
	if report.Receipt.SignedURL != "" {
		_, _ = fmt.Fprintf(c.out, "%s: %s\n", dept, report.Receipt.SignedURL)
	}
	return nil
}

// progressRenderer draws one bar per crawl phase.
type progressRenderer struct {
	department string
	out        io.Writer

	mu    sync.Mutex
	state crawler.State
	bar   *progressbar.ProgressBar
	// high is the largest count drawn in the current phase; concurrent
	// tasks report out of order.
	high int
}

func (p *progressRenderer) update(state crawler.State, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || state != p.state {
		if p.bar != nil {
			_ = p.bar.Finish()
		}
		p.state = state
		p.high = 0
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(fmt.Sprintf("%s %s", p.department, state)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}
	if done <= p.high {
		return
	}
	p.high = done
	_ = p.bar.Set(done)
}

func (p *progressRenderer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		_, _ = fmt.Fprintln(p.out)
	}
}
