package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/davfs/webdav-go/internal/config"
	"github.com/davfs/webdav-go/internal/dav"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd.
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective settings loaded by PersistentPreRunE,
// available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Settings

// newRootCmd builds the fully-assembled root command with all subcommands
// registered. Called once from main.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "webdav-go",
		Short:   "WebDAV CLI client",
		Long:    "A WebDAV client and bidirectional directory synchronizer.",
		Version: version,
		// Cobra's default error/usage printing is silenced; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "errors only")

	cmd.AddCommand(
		newLsCmd(),
		newGetCmd(),
		newPutCmd(),
		newRmCmd(),
		newMvCmd(),
		newCpCmd(),
		newMkdirCmd(),
		newStatCmd(),
		newCheckCmd(),
		newFreeCmd(),
		newPropCmd(),
		newPushCmd(),
		newPullCmd(),
		newSyncCmd(),
	)

	return cmd
}

// loadConfig resolves settings (defaults, file, environment) and installs
// the process-wide logger.
func loadConfig() error {
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	settings, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}

	resolvedCfg = settings
	slog.SetDefault(newLogger(settings))

	return nil
}

// newLogger builds the CLI logger: colored tint output on terminals, plain
// otherwise, level driven by flags and config.
func newLogger(settings *config.Settings) *slog.Logger {
	level := slog.LevelInfo
	if settings.Verbose || flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	return slog.New(handler)
}

// newDavClient builds the WebDAV client from the resolved settings.
func newDavClient() (*dav.Client, error) {
	return dav.NewClient(resolvedCfg, nil, slog.Default())
}
