package commands

import (
	"fmt"
	"os"

	"github.com/dyluth/mulch/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	jsonOutput bool
	workDir    string
	verbosity  int
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mulch",
	Short: "Mulch - structured expertise for coding agents",
	Long: `Mulch records what a project has learned (conventions, patterns, known
failures, decisions, references and guides) as append-friendly JSONL files
under .mulch/expertise/, one file per domain.

Agents load that expertise at the start of a session with 'mulch prime',
search it with 'mulch search', and add to it with 'mulch record'. The files
are plain text and merge cleanly in git, so expertise travels with the code.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	// e.g., "mulch --type failure" instead of "mulch record --type failure"
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
	PersistentPreRunE: setupLogging,
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// setupLogging stores the diagnostics logger in the command context.
// MULCH_LOG_LEVEL overrides the level derived from -v and --quiet.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := logging.LevelFromVerbosity(verbosity, quiet)
	if env := os.Getenv(logging.EnvLevel); env != "" {
		if l, ok := logging.LevelFromString(env); ok {
			level = l
		}
	}
	logger := logging.New(os.Stderr, level)
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "Project root containing .mulch/ (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase diagnostic logging (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress diagnostic logging")
}
