package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/watizat/helpmap/internal/events"
	"github.com/watizat/helpmap/internal/server"
	"github.com/watizat/helpmap/internal/service"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		base, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer base.Close() //nolint:errcheck

		if serveMigrate {
			if err := base.Migrate(ctx); err != nil {
				return eris.Wrap(err, "serve: migrate")
			}
		}
		st := decorateStore(base)

		pub, err := events.Connect(eventsConfig())
		if err != nil {
			return err
		}
		defer pub.Close() //nolint:errcheck

		srv := server.New(serverConfig(servePort),
			service.NewFinder(st),
			service.NewChatService(st, pub),
		)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.String("addr", srv.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply store migrations before serving")
	rootCmd.AddCommand(serveCmd)
}
