package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nearflow/api"
	"nearflow/flows"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the node catalog and run flows over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if listen == "" {
				listen = rt.cfg.Server.Listen
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			ctrl := api.NewController(rt.env, rt.cp, rt.log, flows.NewMetricsMonitor(reg), flows.NewLogMonitor(rt.log))
			svr := echo.New()
			svr.HideBanner = true
			svr.HidePort = true
			svr.Use(middleware.Recover())
			ctrl.Register(svr, reg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				rt.log.Info().Str("listen", listen).Msg("nearflow server starting")
				err := svr.Start(listen)
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				rt.log.Info().Msg("nearflow server stopped")
				return nil
			})
			group.Go(func() error {
				<-ctx.Done()
				rt.log.Info().Msg("nearflow server stopping")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return svr.Shutdown(shutdownCtx)
			})

			var errs *multierror.Error
			if err := group.Wait(); err != nil {
				errs = multierror.Append(errs, err)
			}
			if err := rt.store.Close(); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("could not close store: %w", err))
			}
			return errs.ErrorOrNil()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on, overrides the configuration")
	return cmd
}
