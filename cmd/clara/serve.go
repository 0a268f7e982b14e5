package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/betaskintech/clara/pkg/ai"
	"github.com/betaskintech/clara/pkg/avatar"
	"github.com/betaskintech/clara/pkg/memory"
	"github.com/betaskintech/clara/pkg/platform/web"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia el servidor HTTP del asistente",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, os.Stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// serve 启动 HTTP 服务与后台清理，ctx 取消后优雅退出。
func (a *app) serve(ctx context.Context) error {
	opts := []web.ServerOption{
		web.WithLogger(a.logger),
		web.WithRequestObserver(a.metrics),
		web.WithMetricsHandler(a.metrics.Handler()),
		web.WithMaxBodyBytes(a.cfg.Server.MaxBodyBytes),
	}
	if key := ai.ResolveAPIKey(a.cfg.Avatar.APIKey); key != "" {
		opts = append(opts, web.WithTokenIssuer(avatar.NewClient(key, avatar.WithBaseURL(a.cfg.Avatar.BaseURL))))
	}

	if interval := a.cfg.Memory.SweepInterval; interval > 0 {
		janitor := memory.NewJanitor(a.memory, interval, a.logger)
		janitor.Start(ctx)
		defer janitor.Stop()
	}

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      web.NewServer(a.pipeline, opts...),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("clara listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", slog.Int("sessions", a.memory.Sessions()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
