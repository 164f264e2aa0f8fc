package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Parkreiner/climbingbingo/config"
	"github.com/Parkreiner/climbingbingo/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper, load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the bingo API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := load()
			if err != nil {
				return err
			}
			m, cleanup, err := newGameManager(rt)
			if err != nil {
				return err
			}
			defer cleanup()

			e := server.New(server.NewHandler(server.Init{
				Game:        m,
				Logger:      rt.logger,
				DefaultSize: rt.cfg.DefaultSize,
				DefaultFree: rt.cfg.DefaultFree,
			}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				rt.logger.WithField("addr", rt.cfg.HTTPAddr).Info("starting server")
				if err := e.Start(rt.cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			rt.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("addr", ":8080", "address to listen on")
	bindFlags(v, cmd.Flags(), map[string]string{
		config.KeyHTTPAddr: "addr",
	})
	return cmd
}
