package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/lnemail-client/internal/app"
	"github.com/nhle/lnemail-client/internal/credential"
	"github.com/nhle/lnemail-client/internal/lnemail"
	"github.com/nhle/lnemail-client/internal/logging"
	"github.com/nhle/lnemail-client/internal/model"
	"github.com/nhle/lnemail-client/internal/session"
)

type clientFlags struct {
	configPath string
	baseURL    string
	logLevel   string
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "lnemail: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() clientFlags {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config.yaml")
	baseURL := flag.String("api", "", "override the LNemail API base URL")
	logLevel := flag.String("log-level", "", "override the log level (debug, info, warn, error)")
	flag.Parse()

	return clientFlags{
		configPath: *configPath,
		baseURL:    *baseURL,
		logLevel:   *logLevel,
	}
}

func run(flags clientFlags) error {
	cfg, err := model.LoadConfig(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.baseURL != "" {
		cfg.API.BaseURL = flags.baseURL
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closer.Close()

	log.Info().Str("api", cfg.API.BaseURL).Msg("Starting LNemail client")

	client := lnemail.NewClient(cfg.API.BaseURL,
		lnemail.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		lnemail.WithMaxRetries(cfg.API.MaxRetries),
		lnemail.WithLogger(log),
	)
	tokens := credential.NewTokenStore(credential.SystemKeyring(cfg.Credential.FileDir), log)

	ctrl := session.NewController(client, tokens, session.ConfigFrom(cfg), session.WithLogger(log))
	defer ctrl.Close()

	m := app.New(ctrl, app.Config{
		DownloadsDir:   cfg.Downloads.Dir,
		RequestTimeout: time.Duration(cfg.API.TimeoutSec) * time.Second,
	}, app.WithLogger(log))

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	log.Info().Msg("LNemail client stopped")
	return nil
}
