// Command tenantctl is the operator CLI for tenants and their partitions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/tenantkit/internal/app"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var output string

	root := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Manage tenants and their database partitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format: table or json")

	out := func() printer { return newPrinter(os.Stdout, output) }
	root.AddCommand(
		newCreateCommand(out),
		newListCommand(out),
		newActivateCommand(out),
		newStatusCommand(out),
		newPartitionsCommand(out),
		newUpgradeCommand(out),
		newDeprovisionCommand(),
		newMigrateCommand(),
	)
	return root
}

// withApp opens the services for the duration of one command.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, cfg app.Config) error) error {
	ctx := cmd.Context()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg.Log)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a, cfg); err != nil {
		log.DebugContext(ctx, "command failed", logger.Operation(cmd.Name()), logger.Error(err))
		return err
	}
	return nil
}
