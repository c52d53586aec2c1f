package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapgate/zapgate/internal/adapters/httpapi"
)

const serverShutdownGrace = 10 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			publisher, err := app.newPublisher()
			if err != nil {
				return fmt.Errorf("wire event publisher: %w", err)
			}
			if publisher != nil {
				defer publisher.Close()
			}

			dispatcher, err := app.dispatcher(publisher)
			if err != nil {
				return err
			}
			orchestrator, err := app.orchestrator(publisher)
			if err != nil {
				return err
			}

			handler := httpapi.NewHandler(dispatcher, orchestrator, app.statusRepo, app.logger)

			if listen == "" {
				listen = app.cfg.HTTPListen
			}
			server := &http.Server{
				Addr:    listen,
				Handler: handler.Routes(),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()

			app.logger.Info("http api listening", slog.String("addr", listen))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownGrace)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}

			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from configuration)")

	return cmd
}
