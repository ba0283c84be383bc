package services

import (
	"labventory/config"
	"labventory/internal/database"
	"labventory/internal/repositories"
)

type Service struct {
	Transaction *TransactionService
	Scheduler   *SchedulerService
	Duplicate   *DuplicateService
	Report      *ReportService
	QR          *QRService
	Auth        *AuthService
	Stats       *StatsService
}

func New(db database.DB, config config.Config, repos repositories.Repository) Service {
	transactionService := NewTransactionService(db)

	return Service{
		Transaction: transactionService,
		Scheduler:   NewSchedulerService(),
		Duplicate:   NewDuplicateService(db, repos, config),
		Report:      NewReportService(db, repos),
		QR:          NewQRService(db, repos),
		Auth:        NewAuthService(db, repos, transactionService, config),
		Stats:       NewStatsService(db, repos, config),
	}
}
