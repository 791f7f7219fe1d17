package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newAuthCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with all configured platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.manager.AuthenticateAll(cmd.Context()) {
				return errors.New("authentication failed for one or more platforms")
			}
			opts.log.Info("authentication successful for all platforms")
			return nil
		},
	}
}
