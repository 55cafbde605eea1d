package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/app"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/clock"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/storage/postgres"
	transporthttp "github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/transport/http"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/internal/upstream"
	"github.com/Deepbrother79/Reseller-Api-Hub-v2-sub000/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(configPath *string) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled refund sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.close()
			return serve(ctx, rt, skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations on startup")
	return cmd
}

func serve(ctx context.Context, rt *deps, skipMigrate bool) error {
	cfg, logger := rt.cfg, rt.logger

	if !skipMigrate {
		applied, err := migrations.Apply(ctx, rt.pool)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", zap.Strings("applied", applied))
		}
	}

	clk := clock.NewSystem()
	settlement := app.NewSettlementService(
		postgres.NewSettlementRepository(rt.pool),
		upstream.NewProductClient(cfg.Upstream.Timeout, nil),
		clk,
		app.WithSettlementLogger(logger),
	)
	refunds := app.NewRefundService(
		postgres.NewRefundRepository(rt.pool),
		upstream.NewApprovalClient(cfg.Refund.ApprovalURL, cfg.Refund.ApprovalTimeout, nil),
		clk,
		app.WithRefundWindow(cfg.Refund.Window),
		app.WithRefundLogger(logger),
	)
	lookups := app.NewLookupService(
		postgres.NewLookupRepository(rt.pool),
		upstream.NewLookupClient(cfg.Lookup.URL, cfg.Lookup.Timeout, nil),
		clk,
		app.WithLookupWorkers(cfg.Lookup.Workers),
		app.WithLookupTimeout(cfg.Lookup.Timeout),
		app.WithLookupMaxPairs(cfg.Lookup.MaxPairs),
		app.WithLookupRate(cfg.Lookup.RatePerSecond),
		app.WithLookupLogger(logger),
	)
	sweeper := app.NewSweepService(postgres.NewSweepRepository(rt.pool), clk, logger)

	handler := transporthttp.NewRouter(transporthttp.Services{
		Settlement: settlement,
		Refunds:    refunds,
		Lookups:    lookups,
		Tokens:     app.NewTokenService(postgres.NewTokenRepository(rt.pool)),
		TOTP:       app.NewTOTPService(clk),
		Sweep:      sweeper,
		DB:         rt.pool,
	}, cfg.CORSOrigins, logger)

	if cfg.Sweep.Enabled {
		go app.NewSweepRunner(sweeper, cfg.Sweep.Interval, logger).Start(ctx)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}
	logger.Info("api listening", zap.String("addr", server.Addr))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
