package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/watch"
	"github.com/spf13/cobra"
)

var watchOutput string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream record additions and removals",
	Long: `Watch .mulch/expertise/ and print a line for every record added to or
removed from a domain file, until interrupted.

Output formats:
  default   [15:04:05] + domain mx-abc123 [type] summary
  json      one event object per line`,
	Example: `  mulch watch
  mulch watch --output json | jq .record.id`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", string(watch.OutputFormatDefault), "Output format: default or json")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return fail("watch", err)
	}
	outputFormat := watch.OutputFormat(watchOutput)
	if outputFormat != watch.OutputFormatDefault && outputFormat != watch.OutputFormatJSON {
		return usageError("watch", "invalid output format", "Output must be 'default' or 'json'.")
	}

	ctx, stop := signal.NotifyContext(rt.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.logger.Info("watching expertise", "dir", config.ExpertisePath(rt.root))
	err = watch.StreamEvents(ctx, config.ExpertisePath(rt.root), outputFormat, printer.Stdout(), watch.WithLogger(rt.logger))
	if err != nil && !errors.Is(err, context.Canceled) {
		return fail("watch", err)
	}
	return nil
}
