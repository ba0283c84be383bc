package jobs

import (
	"context"

	"labventory/internal/events"
	"labventory/internal/services"
	"labventory/pkg/logger"
)

// InventoryAlertsJob announces low stock, expiring chemicals and overdue
// maintenance on the alerts channel
type InventoryAlertsJob struct {
	stats    *services.StatsService
	eventBus *events.EventBus
	log      logger.Logger
	schedule services.Schedule
}

func NewInventoryAlertsJob(
	stats *services.StatsService,
	eventBus *events.EventBus,
	schedule services.Schedule,
) *InventoryAlertsJob {
	log := logger.New("inventoryAlertsJob")
	log.Info("Creating new inventory alerts job", "schedule", schedule)

	return &InventoryAlertsJob{
		stats:    stats,
		eventBus: eventBus,
		log:      log,
		schedule: schedule,
	}
}

func (j *InventoryAlertsJob) Name() string {
	return "InventoryAlerts"
}

func (j *InventoryAlertsJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	alerts, err := j.stats.Alerts(ctx)
	if err != nil {
		return log.Err("failed to compute inventory alerts", err)
	}

	if alerts.Empty() {
		log.Debug("No inventory alerts")
		return nil
	}

	if err := j.eventBus.Publish(events.ALERTS_CHANNEL, events.Event{
		Type: events.ALERT,
		Data: map[string]any{
			"count":    alerts.Count(),
			"lowStock": alerts.LowStock,
			"expiring": alerts.Expiring,
			"expired":  alerts.Expired,
			"overdue":  alerts.Overdue,
		},
	}); err != nil {
		return log.Err("failed to publish inventory alerts", err)
	}

	log.Info(
		"Inventory alerts published",
		"lowStock", len(alerts.LowStock),
		"expiring", len(alerts.Expiring),
		"expired", len(alerts.Expired),
		"overdue", len(alerts.Overdue),
	)
	return nil
}

func (j *InventoryAlertsJob) Schedule() services.Schedule {
	return j.schedule
}
