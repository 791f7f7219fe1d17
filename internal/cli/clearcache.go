package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type clearCacheOptions struct {
	AuthOnly bool
}

func newClearCacheCommand(opts *RootOptions) *cobra.Command {
	co := &clearCacheOptions{}

	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Clear cached data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cacheDir := opts.cfg.Cache.Directory

			if co.AuthOnly {
				authDir := filepath.Join(cacheDir, "auth")
				if _, err := os.Stat(authDir); os.IsNotExist(err) {
					opts.log.Infof("no authentication cache found at %s", authDir)
					return nil
				}
				if err := os.RemoveAll(authDir); err != nil {
					return fmt.Errorf("clearing authentication cache: %w", err)
				}
				opts.log.Infof("cleared authentication cache at %s", authDir)
				return nil
			}

			if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
				opts.log.Infof("no cache directory found at %s", cacheDir)
				return nil
			}
			if err := os.RemoveAll(cacheDir); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			if err := os.MkdirAll(cacheDir, 0o755); err != nil {
				return fmt.Errorf("recreating cache directory: %w", err)
			}
			opts.manager.ClearActivityCache()
			opts.log.Infof("cleared all cached data at %s", cacheDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&co.AuthOnly, "auth-only", false, "only clear the authentication cache")

	return cmd
}
