package cli

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
	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/towerroot/internal/api"
	"github.com/gyaneshwarpardhi/towerroot/internal/config"
	"github.com/gyaneshwarpardhi/towerroot/internal/ctxlog"
	"github.com/gyaneshwarpardhi/towerroot/internal/engine"
	"github.com/gyaneshwarpardhi/towerroot/internal/report"
)

const shutdownTimeout = 15 * time.Second

type serveOptions struct {
	configPath string
	inputPath  string
	addr       string
	watch      bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep a tree loaded and serve sorts over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, err := opts.loader()
			if err != nil {
				return err
			}
			cfg := loader.Config()
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = opts.addr
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			flags := cmd.Root().PersistentFlags()
			if !flags.Changed("log-level") && !flags.Changed("log-format") {
				logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
				if err != nil {
					return err
				}
				slog.SetDefault(logger)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, loader)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML or TOML config file")
	cmd.Flags().StringVarP(&opts.inputPath, "input", "i", "", "node lines to keep loaded (without --config)")
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the input file when it changes (without --config)")
	cmd.MarkFlagsMutuallyExclusive("config", "input")
	cmd.MarkFlagsOneRequired("config", "input")
	return cmd
}

func (o *serveOptions) loader() (*config.Loader, error) {
	if o.configPath != "" {
		return config.NewLoader(o.configPath)
	}
	cfg := config.Default()
	cfg.Input.Path = o.inputPath
	cfg.Input.Watch = o.watch
	return config.NewStaticLoader(cfg), nil
}

func serve(ctx context.Context, loader *config.Loader) error {
	cfg := loader.Config()
	logger := slog.Default()
	ctx = ctxlog.WithLogger(ctx, logger)

	eng := engine.New(ctx, cfg.Engine)
	defer eng.Shutdown()
	eng.SetStrictDuplicates(cfg.Input.StrictDuplicates)

	if _, err := eng.Reload(ctx, cfg.Input.Path); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	loader.OnChange(func(newCfg *config.Config) {
		if err := config.Validate(newCfg); err != nil {
			logger.Warn("reload skipped: config invalid", "err", err)
			return
		}
		eng.SetStrictDuplicates(newCfg.Input.StrictDuplicates)
		if _, err := eng.Reload(ctx, newCfg.Input.Path); err != nil {
			logger.Warn("reload failed, keeping previous tree", "path", newCfg.Input.Path, "err", err)
		}
	})
	if loader.Path() != "" || cfg.Input.Watch {
		stopWatch, err := loader.Watch()
		if err != nil {
			logger.Warn("watcher unavailable, hot reload disabled", "err", err)
		} else {
			defer stopWatch()
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(eng, loader, report.Default()),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("goodbye")
	return nil
}
