package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/syllabus-crawler/internal/catalog"
)

// newSyncCmd creates the 'sync' subcommand.
func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync DEPT...",
		Short: "Upsert changed courses from the latest artifacts into Postgres",
		Long: `Compares the two most recent artifact versions of each department and
upserts new and changed courses into the course table named by db.table.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, dept := range args {
				if _, err := catalog.LookupSchool(dept); err != nil {
					return err
				}
			}
			syncer, closeDB, err := c.app.NewSyncer(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			logger := c.app.Logger()
			var failed int
			for _, dept := range args {
				report, err := syncer.Sync(cmd.Context(), dept)
				if err != nil {
					logger.Error("sync failed", zap.String("department", dept), zap.Error(err))
					failed++
					continue
				}
				_, _ = fmt.Fprintf(c.out, "%s: generation %d, %d added, %d changed, %d unchanged, %d removed\n",
					dept, report.Generation, report.Added, report.Changed, report.Unchanged, len(report.Removed))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d departments failed to sync", failed, len(args))
			}
			return nil
		},
	}
}
