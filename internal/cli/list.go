package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lildude/fitsync/internal/platform"
	"github.com/lildude/fitsync/internal/sync"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type listOptions struct {
	Account      string
	Limit        int
	ActivityType string
	StartDate    string
	EndDate      string
}

func newListCommand(opts *RootOptions) *cobra.Command {
	lo := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities from a platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := opts.manager.Platform(lo.Account)
			if !ok {
				return fmt.Errorf("account %s not configured", lo.Account)
			}
			if err := p.Authenticate(cmd.Context()); err != nil {
				return fmt.Errorf("authentication failed for %s: %w", lo.Account, err)
			}

			activities := opts.manager.Activities(cmd.Context(), sync.Query{
				Platform:      lo.Account,
				Limit:         lo.Limit,
				ActivityTypes: splitTypes(lo.ActivityType),
				StartDate:     lo.StartDate,
				EndDate:       lo.EndDate,
			})
			if len(activities) == 0 {
				opts.log.Infof("no activities found for %s", lo.Account)
				return nil
			}

			printActivities(cmd.OutOrStdout(), lo.Account, activities)
			return nil
		},
	}

	cmd.Flags().StringVar(&lo.Account, "account", "", "account to list activities from")
	cmd.Flags().IntVar(&lo.Limit, "limit", 10, "maximum number of activities to display")
	cmd.Flags().StringVar(&lo.ActivityType, "activity-type", "", "comma-separated list of activity types to show")
	cmd.Flags().StringVar(&lo.StartDate, "start-date", "", "only show activities on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&lo.EndDate, "end-date", "", "only show activities on or before this date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

var typeCaser = cases.Title(language.English)

// displayType renders an activity type tag for humans, e.g.
// "trail_running" → "Trail Running".
func displayType(tag string) string {
	return typeCaser.String(strings.ReplaceAll(tag, "_", " "))
}

func printActivities(w io.Writer, account string, activities []platform.Activity) {
	fmt.Fprintf(w, "\nActivities from %s:\n", account)
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for i, a := range activities {
		fmt.Fprintf(w, "%2d. %s  %-16s %9s  %6.1f km  ID: %s\n",
			i+1,
			a.StartTime.Format("2006-01-02 15:04"),
			displayType(a.Type),
			a.Duration.Truncate(time.Second).String(),
			a.Distance/1000,
			a.ID,
		)
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
}

// splitTypes turns a comma-separated flag value into clean tags.
func splitTypes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			types = append(types, t)
		}
	}
	return types
}
