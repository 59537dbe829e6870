package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/lnemail-client/internal/logging"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/proxy"
)

type proxyFlags struct {
	configPath string
	port       int
	upstream   string
	staticDir  string
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "lnemail-proxy: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() proxyFlags {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config.yaml")
	port := flag.Int("port", 0, "listen port (overrides config)")
	upstream := flag.String("upstream", "", "LNemail API root (overrides config)")
	staticDir := flag.String("static", "", "directory of static files to serve")
	flag.Parse()

	return proxyFlags{
		configPath: *configPath,
		port:       *port,
		upstream:   *upstream,
		staticDir:  *staticDir,
	}
}

func run(flags proxyFlags) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := model.LoadConfig(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.port != 0 {
		cfg.Proxy.Port = flags.port
	}
	if flags.upstream != "" {
		cfg.Proxy.Upstream = flags.upstream
	}
	if flags.staticDir != "" {
		cfg.Proxy.StaticDir = flags.staticDir
	}

	log := logging.NewConsole(os.Stderr, cfg.Log.Level)
	srv := proxy.New(proxy.ConfigFrom(cfg.Proxy), log)

	addr := fmt.Sprintf(":%d", cfg.Proxy.Port)
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("upstream", cfg.Proxy.Upstream).Msg("Proxy listening")
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	return shutdown(srv, log)
}

func shutdown(srv *proxy.Server, log zerolog.Logger) error {
	log.Info().Msg("Shutting down proxy")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
