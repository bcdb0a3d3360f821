package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"jarscan/internal/config"
	"jarscan/internal/errors"
	"jarscan/internal/paths"
	"jarscan/internal/slogutil"
	"jarscan/internal/version"
)

const usageText = `jarscan - Search a file or directory for a Java class
Usage: jarscan <dir/jar file> <class name>
Ex: jarscan . Logger
    jarscan ojdbc6.jar Logger
`

// Flags that map onto config keys are read through viper, see config.FlagKeys.
var (
	configFile string
	verbosity  int
	quietFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "jarscan <dir/jar file> <class name>",
	Short: "Search a file or directory for a Java class",
	Long: `jarscan walks a directory tree (or a single file), opens every archive whose
name ends in .jar and prints each class entry whose simple name matches the
given class name, ignoring case.

Examples:
  jarscan . Logger
  jarscan ojdbc6.jar Logger
  jarscan --ext .jar --ext .war --format json ~/.m2 StringUtils`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	defaults := config.DefaultConfig()

	rootCmd.SetVersionTemplate(version.Full())
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		printUsage(out)
		fmt.Fprintf(out, "\nFlags:\n%s", cmd.Flags().FlagUsages())
	})
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		invalidInvocation(cmd.OutOrStdout(), cmd.ErrOrStderr(), slogutil.LevelFromVerbosity(verbosity, quietFlag), err)
		return nil
	})

	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "Config file (toml, yaml or json)")
	flags.String("format", defaults.Output.Format, "Output format (text, json, yaml)")
	flags.String("color", defaults.Output.Color, "Color archive paths in text output (auto, always, never)")
	flags.String("log-level", defaults.Log.Level, "Log level (debug, info, warn, error, off)")
	flags.String("log-format", defaults.Log.Format, "Log format (human, json)")
	flags.String("log-file", "", "Also append logs to this file")
	flags.StringSlice("ext", defaults.Scan.Extensions, "Archive suffix to open (repeatable)")
	flags.StringSlice("skip-dir", nil, "Directory name to skip (repeatable)")
	flags.Bool("verify", false, "Decompress every class entry to detect corrupt archives")
	flags.Bool("summary", false, "Print a scan summary to stderr")
	flags.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logs")
}

func runRoot(cmd *cobra.Command, args []string) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	if len(args) != 2 {
		invalidInvocation(stdout, stderr, slogutil.LevelFromVerbosity(verbosity, quietFlag),
			fmt.Errorf("expected 2 arguments, got %d", len(args)))
		return nil
	}

	cfg, warnings, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	return runScan(cmd.Context(), scanParams{
		root:     args[0],
		target:   args[1],
		cfg:      cfg,
		warnings: warnings,
		level:    logLevel(cfg, verbosity, quietFlag),
		fsys:     paths.OS(),
		stdout:   stdout,
		stderr:   stderr,
	})
}

// invalidInvocation prints usage for a command line that cannot run. The
// process still exits 0.
func invalidInvocation(stdout, stderr io.Writer, level slog.Level, reason error) {
	logger := slog.New(slogutil.NewHandler(stderr, slogutil.FormatHuman, level))
	logger.Debug("Invalid invocation", "code", errors.InvalidInvocation, "error", reason)
	printUsage(stdout)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}
