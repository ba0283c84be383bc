package app

import (
	"context"

	"labventory/config"
	"labventory/internal/controllers"
	"labventory/internal/database"
	"labventory/internal/events"
	"labventory/internal/handlers/middleware"
	"labventory/internal/jobs"
	"labventory/internal/repositories"
	"labventory/internal/services"
	"labventory/internal/websockets"
	"labventory/pkg/logger"
)

type App struct {
	Database    database.DB
	Config      config.Config
	EventBus    *events.EventBus
	Repos       repositories.Repository
	Services    services.Service
	Controllers controllers.Controllers
	Middleware  middleware.Middleware
	Websocket   *websockets.Manager
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	app, err := Build(config, db)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Er("failed to close database", closeErr)
		}
		return &App{}, err
	}

	return app, nil
}

// Build wires every layer on top of an open database. The scheduler is
// started here when enabled.
func Build(config config.Config, db database.DB) (*App, error) {
	log := logger.New("app").Function("Build")

	eventBus := events.New(db.Cache.Events, config)
	repos := repositories.New(db, eventBus)
	services := services.New(db, config, repos)

	websocket, err := websockets.New(
		eventBus,
		services.Auth,
		websockets.NewRepositorySnapshots(db, repos),
		config,
	)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	app := &App{
		Database:    db,
		Config:      config,
		EventBus:    eventBus,
		Repos:       repos,
		Services:    services,
		Controllers: controllers.New(services, repos, config, db),
		Middleware:  middleware.New(db, config, services.Auth),
		Websocket:   websocket,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	if err := jobs.RegisterAllJobs(services.Scheduler, config, services, eventBus); err != nil {
		return &App{}, log.Err("failed to register jobs", err)
	}

	if services.Scheduler.GetJobCount() > 0 {
		if err := services.Scheduler.Start(context.Background()); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.Services.Transaction,
		a.Services.Scheduler,
		a.Services.Duplicate,
		a.Services.Report,
		a.Services.QR,
		a.Services.Auth,
		a.Services.Stats,
		a.Controllers.User,
		a.Controllers.Auth,
		a.Controllers.Equipment,
		a.Controllers.Chemical,
		a.Controllers.CheckInOut,
		a.Controllers.Maintenance,
		a.Controllers.Report,
		a.Controllers.QR,
		a.Controllers.Stats,
		a.Repos.Equipment,
		a.Repos.Chemical,
		a.Repos.CheckInOut,
		a.Repos.Maintenance,
		a.Repos.UserProfile,
		a.Repos.UserCredential,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
