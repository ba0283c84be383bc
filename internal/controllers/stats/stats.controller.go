package statsController

import (
	"context"

	"labventory/internal/services"
)

type StatsController struct {
	statsService *services.StatsService
}

type StatsControllerInterface interface {
	Dashboard(ctx context.Context) (*services.DashboardStats, error)
	Alerts(ctx context.Context) (*services.InventoryAlerts, error)
}

func New(services services.Service) StatsControllerInterface {
	return &StatsController{statsService: services.Stats}
}

func (sc *StatsController) Dashboard(ctx context.Context) (*services.DashboardStats, error) {
	return sc.statsService.Dashboard(ctx)
}

func (sc *StatsController) Alerts(ctx context.Context) (*services.InventoryAlerts, error) {
	return sc.statsService.Alerts(ctx)
}
