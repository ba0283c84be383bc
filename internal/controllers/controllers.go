package controllers

import (
	"labventory/config"
	"labventory/internal/database"
	"labventory/internal/repositories"
	"labventory/internal/services"

	authController "labventory/internal/controllers/auth"
	checkInOutController "labventory/internal/controllers/checkInOut"
	chemicalController "labventory/internal/controllers/chemicals"
	equipmentController "labventory/internal/controllers/equipment"
	maintenanceController "labventory/internal/controllers/maintenance"
	qrController "labventory/internal/controllers/qr"
	reportController "labventory/internal/controllers/reports"
	statsController "labventory/internal/controllers/stats"
	userController "labventory/internal/controllers/users"
)

type Controllers struct {
	User        userController.UserControllerInterface
	Auth        authController.AuthControllerInterface
	Equipment   equipmentController.EquipmentControllerInterface
	Chemical    chemicalController.ChemicalControllerInterface
	CheckInOut  checkInOutController.CheckInOutControllerInterface
	Maintenance maintenanceController.MaintenanceControllerInterface
	Report      reportController.ReportControllerInterface
	QR          qrController.QRControllerInterface
	Stats       statsController.StatsControllerInterface
}

func New(
	services services.Service,
	repos repositories.Repository,
	config config.Config,
	db database.DB,
) Controllers {
	return Controllers{
		User:        userController.New(repos, services, config, db),
		Auth:        authController.New(services),
		Equipment:   equipmentController.New(repos, services, config, db),
		Chemical:    chemicalController.New(repos, services, config, db),
		CheckInOut:  checkInOutController.New(repos, services, config, db),
		Maintenance: maintenanceController.New(repos, services, config, db),
		Report:      reportController.New(services),
		QR:          qrController.New(services),
		Stats:       statsController.New(services),
	}
}
