package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"redemption-guard/cmd/bootstrap"
	"redemption-guard/internal/pkg/config"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var Version = "dev"

func init() {
	// never leak debug output because of a missing env var
	gin.SetMode(gin.ReleaseMode)

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "redemption-guard",
		Short:         "Voucher redemption ledger with fraud detection",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the core with the health and metrics endpoints",
		RunE: func(_ *cobra.Command, _ []string) error {
			app := fx.New(
				bootstrap.Module,
				fx.Provide(
					func() *gin.Engine {
						return gin.New()
					},
				),
				fx.Invoke(
					startServer,
				),
			)

			if err := app.Start(context.Background()); err != nil {
				return errs.Wrap(err, "failed to start application")
			}

			<-app.Done()

			if err := app.Stop(context.Background()); err != nil {
				slog.Error("failed to stop application", "error", err)
			}

			slog.Info("application stopped")
			return nil
		},
	}
}

func startServer(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			listenAddr := ":" + cfg.Server.Port
			logger.Info("starting server", "address", listenAddr, "mode", gin.Mode())
			go func() {
				if err := engine.Run(listenAddr); err != nil {
					logger.Error("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			logger.Info("stopping server")
			return nil
		},
	})
}

func reconcileCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay offline redemption batches through fraud detection",
		Long: `Reconcile reads a JSON object mapping customer ids to the offline
redemptions their devices queued, records them and replays detection in
corrected order.

Example:
  redemption-guard reconcile --input batch.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			batches, err := readBatches(input)
			if err != nil {
				return err
			}

			var reconciler commands.ReconcileCommands
			app := fx.New(
				bootstrap.CoreModule,
				fx.NopLogger,
				fx.Populate(&reconciler),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.Start(ctx); err != nil {
				return errs.Wrap(err, "failed to start application")
			}
			defer func() {
				if err := app.Stop(context.Background()); err != nil {
					slog.Error("failed to stop application", "error", err)
				}
			}()

			results, runErr := reconciler.ReconcileAll(ctx, batches)
			printSummary(cmd, results)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to the batch file")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func readBatches(path string) (map[uuid.UUID][]commands.RecordRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "failed to read %s", path)
	}
	var batches map[uuid.UUID][]commands.RecordRequest
	if err := json.Unmarshal(raw, &batches); err != nil {
		return nil, errs.Wrapf(err, "failed to decode %s", path)
	}
	return batches, nil
}

func printSummary(cmd *cobra.Command, results map[uuid.UUID]*commands.ReconciliationResult) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CUSTOMER\tRECORDED\tDUPLICATE\tREJECTED\tFAILED\tREPLAYED")
	for id, res := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
			id,
			res.Count(commands.ItemRecorded),
			res.Count(commands.ItemDuplicate),
			res.Count(commands.ItemRejected),
			res.Count(commands.ItemFailed),
			len(res.Replayed))
	}
	_ = w.Flush()
}
