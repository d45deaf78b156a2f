package handlers

import (
	"time"

	"homeessence/internal/config"
	"homeessence/internal/repos"
	"homeessence/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Auth          *services.AuthService
	Products      *services.ProductService
	Inventory     *services.InventoryService
	Clients       *services.ClientService
	Sales         *services.SaleService
	Expenses      *services.ExpenseService
	Reports       *services.ReportService
	Notifications *services.NotificationService

	AuthHandler      *AuthHandler
	DashboardHandler *DashboardHandler
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	ClientHandler    *ClientHandler
	SaleHandler      *SaleHandler
	ReportHandler    *ReportHandler
	ExpenseHandler   *ExpenseHandler
	APIHandler       *APIHandler
}

// NewDeps wires repos, services and handlers. A nil expense service means
// no expense figures were loaded.
func NewDeps(db *sqlx.DB, cfg config.Config, exp *services.ExpenseService) *Deps {
	userRepo := repos.NewUserRepo(db)
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	clientRepo := repos.NewClientRepo(db)
	saleRepo := repos.NewSaleRepo(db)
	reportRepo := repos.NewReportRepo(db)
	noteRepo := repos.NewNotificationRepo(db)

	if exp == nil {
		exp = services.NewExpenseService(nil, "", "")
	}
	authSvc := services.NewAuthService(userRepo)
	prodSvc := services.NewProductService(prodRepo)
	invSvc := services.NewInventoryService(invRepo, cfg.LowStockThreshold)
	clientSvc := services.NewClientService(clientRepo)
	saleSvc := services.NewSaleService(db, clientRepo, prodRepo, invRepo, saleRepo)
	reportSvc := services.NewReportService(reportRepo, saleRepo, clientRepo, invSvc, exp)
	noteSvc := services.NewNotificationService(invSvc, reportRepo, clientRepo, noteRepo)

	return &Deps{
		Auth:          authSvc,
		Products:      prodSvc,
		Inventory:     invSvc,
		Clients:       clientSvc,
		Sales:         saleSvc,
		Expenses:      exp,
		Reports:       reportSvc,
		Notifications: noteSvc,

		AuthHandler:      &AuthHandler{Auth: authSvc},
		DashboardHandler: &DashboardHandler{Reports: reportSvc, Notifications: noteSvc},
		ProductHandler:   &ProductHandler{Products: prodSvc, Inv: invSvc},
		InventoryHandler: &InventoryHandler{Products: prodSvc, Inv: invSvc},
		ClientHandler:    &ClientHandler{Clients: clientSvc, Sales: saleSvc},
		SaleHandler:      &SaleHandler{Sales: saleSvc, Clients: clientSvc, Products: prodSvc},
		ReportHandler:    &ReportHandler{Reports: reportSvc, Sales: saleRepo, Now: time.Now},
		ExpenseHandler:   &ExpenseHandler{Expenses: exp, Products: prodSvc},
		APIHandler: &APIHandler{
			Products: prodSvc, Sales: saleSvc, Reports: reportSvc, Notifications: noteSvc, Now: time.Now,
		},
	}
}
