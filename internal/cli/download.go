package cli

import (
	"fmt"
	"os"

	"github.com/lildude/fitsync/internal/platform"
	"github.com/lildude/fitsync/internal/sync"
	"github.com/spf13/cobra"
)

type downloadOptions struct {
	Account      string
	ID           string
	Index        int
	OutputDir    string
	Limit        int
	ActivityType string
	StartDate    string
	EndDate      string
}

func newDownloadCommand(opts *RootOptions) *cobra.Command {
	do := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download activity track files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := opts.manager.Platform(do.Account); !ok {
				return fmt.Errorf("account %s not configured", do.Account)
			}

			// A direct id skips the listing entirely.
			if do.ID != "" {
				outputDir := do.OutputDir
				if outputDir == "" {
					outputDir, _ = os.Getwd()
				}
				path, err := opts.manager.DownloadActivity(cmd.Context(), do.Account, do.ID, outputDir, "")
				if err != nil {
					return fmt.Errorf("failed to download activity %s: %w", do.ID, err)
				}
				opts.log.Infof("downloaded activity %s to %s", do.ID, path)
				return nil
			}

			activities := opts.manager.Activities(cmd.Context(), sync.Query{
				Platform:      do.Account,
				Limit:         do.Limit,
				ActivityTypes: splitTypes(do.ActivityType),
				StartDate:     do.StartDate,
				EndDate:       do.EndDate,
			})
			if len(activities) == 0 {
				opts.log.Infof("no activities found for %s", do.Account)
				return nil
			}

			// Without an index, show the candidates and how to pick one.
			if do.Index == 0 {
				printActivities(cmd.OutOrStdout(), do.Account, activities)
				fmt.Fprintln(cmd.OutOrStdout(), "Use --index <number> to download a specific activity")
				return nil
			}

			if do.Index < 1 || do.Index > len(activities) {
				return fmt.Errorf("invalid index %d, valid range: 1-%d", do.Index, len(activities))
			}

			activity := activities[do.Index-1]
			if activity.ID == "" {
				return fmt.Errorf("no id found for activity at index %d", do.Index)
			}

			var filename string
			if do.OutputDir != "" {
				filename = activityFilename(activity, do.Index)
			}

			path, err := opts.manager.DownloadActivity(cmd.Context(), do.Account, activity.ID, do.OutputDir, filename)
			if err != nil {
				return fmt.Errorf("failed to download activity at index %d: %w", do.Index, err)
			}
			opts.log.Infof("downloaded activity to %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&do.Account, "account", "", "account to download activities from")
	cmd.Flags().StringVar(&do.ID, "id", "", "id of the activity to download")
	cmd.Flags().IntVar(&do.Index, "index", 0, "index of the activity to download (from the list command)")
	cmd.Flags().StringVar(&do.OutputDir, "output-dir", "", "directory to save downloaded files")
	cmd.Flags().IntVar(&do.Limit, "limit", 10, "maximum number of activities to consider")
	cmd.Flags().StringVar(&do.ActivityType, "activity-type", "", "comma-separated list of activity types to consider")
	cmd.Flags().StringVar(&do.StartDate, "start-date", "", "only consider activities on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&do.EndDate, "end-date", "", "only consider activities on or before this date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

// activityFilename builds a human-readable name for an exported track
// file, e.g. 20240131_running_2.fit.
func activityFilename(a platform.Activity, index int) string {
	date := "unknown"
	if !a.StartTime.IsZero() {
		date = a.StartTime.Format("20060102")
	}
	activityType := a.Type
	if activityType == "" {
		activityType = "activity"
	}
	return fmt.Sprintf("%s_%s_%d.fit", date, activityType, index)
}
