// Package app wires configuration, logging, the session and the services
// into the interactive client and the MCP tool server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/auth"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/config"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/events"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/loading"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/logging"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/router"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/services"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/storage"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/ui"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/validation"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/views"
)

// DefaultFragment is where the client starts; the gate sends signed-out
// users to login.
const DefaultFragment = "#/board"

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Session *auth.Session
	Deps    views.Deps
	Loader  router.Loader

	closeLog  func()
	closeOnce sync.Once
}

// New builds the shared stack. Forms draw their spinner on out.
func New(cfg *config.Config, out io.Writer) (*App, error) {
	logger, closeLog, err := logging.New(logging.Config{
		DevMode:  cfg.DevMode,
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		File:     cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	encryptionKey, err := cfg.GetEncryptionKey()
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}

	fileStore, err := storage.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	session, err := auth.NewSession(fileStore, encryptionKey)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	if err := session.Init(); err != nil {
		closeLog()
		return nil, err
	}

	client := api.NewClient(cfg.APIBaseURL(), session, cfg.API.Timeout, logger)

	var loader router.Loader = router.BundledLoader{}
	if cfg.API.ViewsURL != "" {
		loader = router.NewHTTPLoader(cfg.API.ViewsURL, cfg.API.Timeout)
	}

	logger.Info("client initialized",
		zap.String("api", cfg.APIBaseURL()),
		zap.Bool("authenticated", session.Authenticated()),
		zap.Bool("encrypted_session", encryptionKey != nil))

	return &App{
		Config:  cfg,
		Logger:  logger,
		Session: session,
		Loader:  loader,
		Deps: views.Deps{
			Users:     services.NewUserService(client, session),
			Tasks:     services.NewTaskService(client),
			Passwords: services.NewPasswordService(client),
			Bus:       events.NewBus(),
			Validator: validation.New(),
			Spinner:   loading.New(cfg.UI.SpinnerMin, cfg.UI.SpinnerMax, ui.SpinnerLine(out)),
			Logger:    logger,
		},
		closeLog: closeLog,
	}, nil
}

// Close flushes the logger. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(a.closeLog)
}

// Run starts the interactive client at fragment and returns when the user
// quits.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer, fragment string) error {
	if fragment == "" {
		fragment = DefaultFragment
	}

	prompt := ui.NewPrompter(in, out)
	front := ui.NewApp(a.Deps, prompt, ui.Options{
		WideWidth:     a.Config.UI.WideWidth,
		ToastDuration: a.Config.UI.ToastDuration,
		SpinnerMin:    a.Config.UI.SpinnerMin,
		SpinnerMax:    a.Config.UI.SpinnerMax,
		AltScreen:     ui.IsTTY(out),
	})
	defer front.Close()

	loc := router.NewLocation(fragment)
	r := router.New(a.Loader, router.NewDocument(out), loc, a.Session, a.Logger)
	front.Register(r)

	err := r.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Logout forgets the stored session.
func (a *App) Logout() error {
	return a.Deps.Users.Logout()
}
