// Package cli wires the fitsync commands to the sync orchestrator.
package cli

import (
	"os"

	"github.com/lildude/fitsync/internal/config"
	"github.com/lildude/fitsync/internal/logger"
	"github.com/lildude/fitsync/internal/sync"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootOptions holds the global flags and the collaborators built from them,
// shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	cfg     *config.Config
	manager *sync.Manager
	log     logrus.FieldLogger
}

// NewRootCommand creates the root command for the fitsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "fitsync",
		Short:         "Sync fitness activities between platforms",
		Long:          "fitsync pulls activities and their track files from one fitness platform and pushes them to another, driven by sync rules.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.log = logger.New(opts.Verbose)

			path := opts.ConfigPath
			if path == "" {
				path = os.Getenv("FITSYNC_CONFIG")
			}
			if path == "" {
				path = config.DefaultPath()
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.manager = sync.New(cfg, opts.log)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")

	cmd.AddCommand(newAuthCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newDownloadCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newClearCacheCommand(opts))

	return cmd
}
