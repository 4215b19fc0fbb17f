package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ghfinder/internal/adapters/github"
	"ghfinder/internal/adapters/github/tokens"
	"ghfinder/internal/modkit"
	"ghfinder/internal/platform/config"
	"ghfinder/internal/platform/logger"
	crepo "ghfinder/internal/services/crawl/repo"
	dashmod "ghfinder/internal/services/dashboard/module"
)

func newServeCommand(f *crawlFlags, stdout io.Writer) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only dashboard over existing runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), f, addr, stdout)
		},
	}
	cmd.Flags().StringVar(&addr, "http-addr", "", "listen address, GHFINDER_HTTP_ADDR or :8080 when empty")
	return cmd
}

func serve(ctx context.Context, f *crawlFlags, addr string, stdout io.Writer) error {
	cfg := config.New()
	initLogger(cfg, f.verbose, nil, "")
	log := logger.Named("cli")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := newRegistry()
	ports := dashmod.Ports{
		Runs:    crepo.New(crepo.Options{BaseDir: runsDir(cfg)}),
		Metrics: reg,
	}

	toks, err := loadTokens(cfg, f)
	if err != nil {
		return exitWith(exitError, err)
	}
	if len(toks) > 0 {
		pool := tokens.New(toks)
		ghOpts := github.OptionsFromConfig(cfg.Prefix("GHFINDER_"))
		ghOpts.Registerer = reg
		if _, err := github.NewClient(pool, ghOpts).CheckTokens(ctx); err != nil {
			log.Warn().Err(err).Msg("token check failed")
		}
		ports.Tokens = pool
	}

	dm, err := dashmod.New(modkit.Deps{Log: *logger.Get(), Cfg: cfg}, dashmod.FromConfig(cfg).WithAddr(addr), modkit.WithPorts(ports))
	if err != nil {
		return exitWith(exitError, err)
	}
	srv := dm.Server()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	fmt.Fprintf(stdout, "Dashboard on %s (runs under %s)\n", srv.Addr(), runsDir(cfg))
	if err := srv.Run(ctx); err != nil {
		return exitWith(exitError, err)
	}
	return nil
}
