package cli

import (
	"errors"

	"github.com/lildude/fitsync/internal/platform"
	"github.com/lildude/fitsync/internal/sync"
	"github.com/spf13/cobra"
)

type syncOptions struct {
	Source       string
	Destination  string
	ActivityType string
	StartDate    string
	EndDate      string
	DryRun       bool
	Conflict     string
}

func newSyncCommand(opts *RootOptions) *cobra.Command {
	so := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync activities between platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var conflict platform.ConflictStrategy
			if so.Conflict != "" {
				var err error
				if conflict, err = platform.ParseConflictStrategy(so.Conflict); err != nil {
					return err
				}
			}

			if !opts.manager.AuthenticateAll(cmd.Context()) {
				return errors.New("authentication failed, cannot sync")
			}

			count := opts.manager.Sync(cmd.Context(), sync.Options{
				Source:        so.Source,
				Destination:   so.Destination,
				ActivityTypes: splitTypes(so.ActivityType),
				StartDate:     so.StartDate,
				EndDate:       so.EndDate,
				DryRun:        so.DryRun,
				Conflict:      conflict,
			})

			opts.log.Infof("sync completed, %d activities synchronized", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&so.Source, "source", "", "override the source account from config")
	cmd.Flags().StringVar(&so.Destination, "destination", "", "override the destination account from config")
	cmd.Flags().StringVar(&so.ActivityType, "activity-type", "", "comma-separated list of activity types to sync")
	cmd.Flags().StringVar(&so.StartDate, "start-date", "", "only sync activities on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&so.EndDate, "end-date", "", "only sync activities on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&so.DryRun, "dry-run", false, "preview sync operations without uploading")
	cmd.Flags().StringVar(&so.Conflict, "conflict-strategy", "", "how the destination treats duplicates (skip_existing|replace_existing)")

	return cmd
}
