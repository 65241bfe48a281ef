package handlers

import (
	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/middleware"
	"github.com/entererp/finance_core_app/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	dbPool *pgxpool.Pool,
) {
	registerHomeRoutes(r, dbPool)

	setupAPIV1Routes(r, services)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
) {
	// Every v1 route requires a caller identity for audit stamping.
	v1 := r.Group("/api/v1", middleware.RequireUserID())

	registerCurrencyRoutes(v1, services.Currency)

	// Company-scoped resources
	company := v1.Group("/companies/:companyID")
	registerAccountRoutes(company, services.Account)
	registerJournalRoutes(company, services.Journal)
	registerInvoiceRoutes(company, services.Invoice, services.Reconciliation, services.Payment)
	registerPaymentRoutes(company, services.Payment, services.Reconciliation)
	registerReportingRoutes(company, services.Reporting)
}
