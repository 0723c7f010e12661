package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gkmur/letterboxd-cli/config"
	"github.com/gkmur/letterboxd-cli/internal/browser"
	"github.com/gkmur/letterboxd-cli/internal/core"
	"github.com/gkmur/letterboxd-cli/internal/observability"
	"github.com/gkmur/letterboxd-cli/internal/repository"
	"github.com/gkmur/letterboxd-cli/internal/stealth"
	"github.com/gkmur/letterboxd-cli/internal/workflows"
)

// app holds the components built for one command
type app struct {
	cfg     *core.Config
	logger  *zap.Logger
	repo    *repository.SQLiteRepository
	browser *browser.Manager
	svc     *workflows.Service
	started time.Time
}

var (
	configPath string
	visible    bool
	jsonOutput bool

	current *app
)

var rootCmd = &cobra.Command{
	Use:           "letterboxd",
	Short:         "letterboxd drives a headless browser to use Letterboxd from the terminal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&visible, "visible", false, "show the browser window")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if current != nil {
		current.close()
	}
	return err
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if visible {
		cfg.Browser.Headless = false
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	repo, err := repository.NewSQLiteRepository(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	logger.Debug("Repository initialized", zap.String("db_path", cfg.Database.Path))

	manager := browser.NewManager(cfg.Browser, cfg.Timeouts, stealth.New(cfg.Stealth, nil), logger)
	return &app{
		cfg:     cfg,
		logger:  logger,
		repo:    repo,
		browser: manager,
		svc:     workflows.NewService(manager, repo, cfg, logger),
		started: time.Now(),
	}, nil
}

// close tears down the session even when the command was interrupted, so
// the cookie snapshot is written
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.browser.Close(ctx); err != nil {
		a.logger.Error("Failed to close browser", zap.Error(err))
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Error("Failed to close repository", zap.Error(err))
	}
	_ = a.logger.Sync()
}
