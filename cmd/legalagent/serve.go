package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/legal-agent/internal/server"
)

func serveCmd(a *app, stderr io.Writer) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: a.cfg.Level()}))
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}

			backend, err := a.cfg.NewBackend(ctx, log)
			if err != nil {
				return err
			}
			// One limiter for the whole process: concurrent uploads share the
			// outbound request budget.
			p, err := a.cfg.NewPipeline(backend, a.cfg.NewLimiter(), log)
			if err != nil {
				return err
			}
			srv := server.New(a.cfg.NewExtractor(log), p, server.Options{
				MaxUploadBytes: a.cfg.HTTP.MaxUploadMB << 20,
				Rules:          a.cfg.RuleSet(),
			}, log)

			hs := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("server.listen", "addr", addr, "provider", a.cfg.LLM.Provider)
				errCh <- hs.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log.Info("server.shutdown")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from HTTP_ADDR)")
	return cmd
}
