// Package application wires configuration, storage, devices and use cases
// into one App shared by the CLI and the MCP server.
package application

import (
	"fmt"
	"log/slog"

	"github.com/biosim/geocap/internal/camera"
	"github.com/biosim/geocap/internal/config"
	"github.com/biosim/geocap/internal/database"
	"github.com/biosim/geocap/internal/geo"
	"github.com/biosim/geocap/internal/media"
	"github.com/biosim/geocap/internal/records"
	"github.com/biosim/geocap/internal/usecase"
)

type App struct {
	Config   *config.Config
	DB       *database.Context
	Records  *records.Store
	Media    *media.Store
	Locator  *geo.Provider
	Captures *usecase.Capture
	Parents  *usecase.Parent
	Logger   *slog.Logger
}

// Open creates the database, runs migrations and builds the use cases
// described by cfg. Pass nil logger for default.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbCtx, err := database.CreateDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	store := records.NewStore(dbCtx, logger)
	mediaStore := media.NewStore(cfg.Media.Dir)
	locator := geo.NewProvider(NewSource(cfg.Location, logger), logger)

	var sink camera.Sink
	if cfg.Camera.Command != "" {
		sink = camera.NewCommandSink(cfg.Camera.Command, cfg.Camera.Args, logger)
	}

	return &App{
		Config:  cfg,
		DB:      dbCtx,
		Records: store,
		Media:   mediaStore,
		Locator: locator,
		Captures: usecase.NewCapture(store, mediaStore, sink, locator, usecase.CaptureOptions{
			LocationTimeout:   cfg.Location.Timeout,
			LastKnownFallback: cfg.Location.LastKnownFallback,
		}, logger),
		Parents: usecase.NewParent(store, mediaStore, logger),
		Logger:  logger,
	}, nil
}

// NewSource returns the configured location source, or nil when none is
// configured.
func NewSource(cfg config.LocationConfig, logger *slog.Logger) geo.Source {
	if cfg.NMEADevice == "" {
		return nil
	}
	return geo.NewNMEASource(cfg.NMEADevice, cfg.NMEABaud, logger)
}

// CapturesFrom returns the capture use case, importing from path instead of
// the configured camera when path is set.
func (a *App) CapturesFrom(path string) *usecase.Capture {
	if path == "" {
		return a.Captures
	}
	return a.Captures.WithSink(camera.NewFileSink(path))
}

func (a *App) Close() error {
	a.Records.Close()
	return database.CloseDatabase(a.DB)
}
