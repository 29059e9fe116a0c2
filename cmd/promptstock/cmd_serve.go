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

	"promptstock/internal/controller"
	"promptstock/internal/history"
	"promptstock/internal/httpapi"
	"promptstock/internal/llm"
	"promptstock/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		cors    string
		maxBody int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP bridge for a UI process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			origins := a.cfg.HTTP.CORSOrigins
			if cors != "" {
				origins = splitCSV(cors)
			}
			httpapi.SetCORSOptions(len(origins) > 0, origins, nil, nil)
			httpapi.SetMaxBodyBytes(maxBody)

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			settings := history.NewSettingsWithDefaults(st, a.cfg.AppSettings())
			modelsDir, err := a.modelsDir()
			if err != nil {
				return err
			}

			pub := logPublisher{log: a.log}
			// Each request snapshots the saved settings over the file config.
			source := func() llm.Settings {
				cfg := a.cfg
				if s, err := settings.Load(context.Background()); err != nil {
					a.log.Warn().Err(err).Msg("event=settings_load_error")
				} else {
					cfg = cfg.WithAppSettings(s)
				}
				out, err := a.resolve(cfg, pub)
				if err != nil {
					// The factory reports the missing model files.
					a.log.Warn().Err(err).Msg("event=settings_resolve_error")
					return llm.Settings{Mode: cfg.LLM.Mode}
				}
				return out
			}
			ctrl := controller.New(controller.Config{Source: source, Logger: &a.log, Publisher: pub})
			defer ctrl.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			currentMode := func() types.Mode {
				s, err := settings.Load(context.Background())
				if err != nil {
					return a.cfg.LLM.Mode
				}
				return s.Mode
			}
			mux := httpapi.NewMux(httpapi.Deps{
				Exec:        ctrl,
				Analyses:    history.NewAnalyses(st),
				Templates:   history.NewTemplates(st),
				Settings:    settings,
				ModelsDir:   modelsDir,
				Mode:        currentMode,
				BaseContext: ctx,
			})
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", addr).Str("models_dir", modelsDir).Msg("event=serve_start")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn().Err(err).Msg("event=serve_shutdown_error")
			}
			a.log.Info().Msg("event=serve_stop")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "HTTP listen address (defaults to http.addr)")
	f.StringVar(&cors, "cors-origins", "", "Comma-separated allowed CORS origins")
	f.Int64Var(&maxBody, "max-body-bytes", 0, "Maximum request body size (0 = default)")
	return cmd
}
