package jobs

import (
	"labventory/config"
	"labventory/internal/events"
	"labventory/internal/services"
	"labventory/pkg/logger"
)

const (
	Daily  = services.Daily
	Hourly = services.Hourly
)

func RegisterAllJobs(
	schedulerService *services.SchedulerService,
	config config.Config,
	services services.Service,
	eventBus *events.EventBus,
) error {
	log := logger.New("jobs").Function("RegisterAllJobs")

	if !config.SchedulerEnabled {
		log.Info("Scheduler disabled, skipping job registration")
		return nil
	}

	alertsJob := NewInventoryAlertsJob(services.Stats, eventBus, Hourly)
	if err := schedulerService.AddJob(alertsJob); err != nil {
		return log.Err("failed to register inventory alerts job", err)
	}
	log.Info("Registered inventory alerts job", "schedule", "hourly")

	return nil
}
