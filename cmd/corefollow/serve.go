package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/corefollow"
	"github.com/aretw0/corefollow/internal/cli"
	httpAdapter "github.com/aretw0/corefollow/pkg/adapters/http"
	"github.com/aretw0/corefollow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves runs and shutdown margin analyses of the case over a JSON API, with Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		logger, err := createLogger(cmd)
		if err != nil {
			return err
		}
		cfg, err := loadCase(cmd)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		metrics := observability.NewMetrics(reg)
		hooks := metrics.Hooks().Merge(observability.LogHooks(logger))

		srv := &http.Server{
			Addr: addr,
			Handler: httpAdapter.NewHandler(&httpAdapter.Server{
				Case:     cfg,
				Options:  []corefollow.Option{corefollow.WithLifecycleHooks(hooks)},
				Gatherer: reg,
				Logger:   logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server started", "addr", addr, "case", cfg.Name, "version", corefollow.Version)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-sc.Done():
			logger.Info("shutting down", "signal", sc.Signal())
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown incomplete", "err", err)
				return srv.Close()
			}
			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
