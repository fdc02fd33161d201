// Package app assembles the admin console: it configures logging, picks the
// token storage, builds the API client and wires the session store, route
// guard, user list and prompts into a console controller.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/adminconsole/internal/apiclient"
	"github.com/patric-chuzhbe/adminconsole/internal/config"
	"github.com/patric-chuzhbe/adminconsole/internal/console"
	"github.com/patric-chuzhbe/adminconsole/internal/db/jsondb"
	"github.com/patric-chuzhbe/adminconsole/internal/db/memorystorage"
	"github.com/patric-chuzhbe/adminconsole/internal/db/storage"
	"github.com/patric-chuzhbe/adminconsole/internal/guard"
	"github.com/patric-chuzhbe/adminconsole/internal/logger"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
	"github.com/patric-chuzhbe/adminconsole/internal/prompt"
	"github.com/patric-chuzhbe/adminconsole/internal/session"
	"github.com/patric-chuzhbe/adminconsole/internal/userlist"
)

// App owns the configuration, the token storage and the console built on
// top of them.
type App struct {
	cfg     *config.Config
	tokens  storage.Storage
	console *console.Console
}

// New initializes a new instance of App by:
// - initializing logger
// - selecting and setting up token storage
// - building the API client
// - wiring the console components together
func New(cfg *config.Config) (*App, error) {
	var err error
	app := &App{cfg: cfg}

	err = logger.Init(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.tokens, err = getStorageByType(cfg)
	if err != nil {
		return nil, err
	}

	err = app.tokens.Ping(context.Background())
	if err != nil {
		return nil, fmt.Errorf("token storage unavailable: %w", err)
	}

	client := apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.RequestTimeout))

	sessions := session.New(client, app.tokens, session.WithAdminOnly(cfg.AdminOnly))

	users := userlist.New(client, sessions)
	users.Watch()

	app.console = console.New(
		sessions,
		users,
		guard.New(sessions, guard.DefaultRoutes),
		prompt.New(cfg.NotificationTTL),
	)

	logger.Log.Infoln(
		"admin console ready",
		"APIBaseURL", cfg.APIBaseURL,
		"TokenStoragePath", cfg.TokenStoragePath,
		"AdminOnly", cfg.AdminOnly,
	)

	return app, nil
}

// Console is the controller the front-end drives.
func (a *App) Console() *console.Console {
	return a.console
}

// Close stops the console, flushes the token storage and syncs the logger.
func (a *App) Close() error {
	a.console.Close()

	err := a.tokens.Close()
	if err != nil {
		logger.Log.Debugln("Error calling the `a.tokens.Close()`:", zap.Error(err))
	}

	if syncErr := logger.Sync(); syncErr != nil {
		fmt.Println("Logger sync error:", syncErr)
	}

	return err
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.TokenStoragePath != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypeFile:
		return jsondb.New(cfg.TokenStoragePath)
	}

	return memorystorage.New()
}
