package main

import (
	"github.com/creditgate/creditgate/internal/handlers"
	"github.com/creditgate/creditgate/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func registerRoutes(r *gin.Engine, db *gorm.DB, pricing *services.PricingService, ledger *services.LedgerService, jobs *services.JobService) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "creditgate"})
	})

	jobHandler := handlers.NewJobHandler(jobs)
	ledgerHandler := handlers.NewLedgerHandler(ledger)
	resolverHandler := handlers.NewResolverHandler(services.NewResolverService(db))
	tenantHandler := handlers.NewTenantHandler(services.NewTenantService(db))
	groupHandler := handlers.NewModelGroupHandler(services.NewModelGroupService(db))
	priceHandler := handlers.NewPriceHandler(pricing)

	api := r.Group("/api")
	{
		// Jobs
		api.POST("/jobs", jobHandler.Create)
		api.GET("/jobs", jobHandler.List)
		api.GET("/jobs/:id", jobHandler.Get)
		api.GET("/jobs/:id/usage", jobHandler.ListUsage)
		api.POST("/jobs/:id/usage", jobHandler.RecordUsage)
		api.POST("/jobs/:id/complete", jobHandler.Complete)

		// Resolution
		api.POST("/models/resolve", resolverHandler.Resolve)

		// Ledger
		api.GET("/teams/:id/balance", ledgerHandler.GetBalance)
		api.POST("/teams/:id/credits/allocate", ledgerHandler.Allocate)
		api.POST("/teams/:id/credits/refund", ledgerHandler.Refund)
		api.PUT("/teams/:id/policy", ledgerHandler.UpdatePolicy)
		api.GET("/transactions", ledgerHandler.ListTransactions)

		// Tenancy administration
		api.POST("/orgs", tenantHandler.CreateOrganization)
		api.GET("/orgs", tenantHandler.ListOrganizations)
		api.PUT("/orgs/:id/status", tenantHandler.SetOrganizationStatus)
		api.POST("/teams", tenantHandler.CreateTeam)
		api.GET("/teams", tenantHandler.ListTeams)
		api.GET("/teams/:id", tenantHandler.GetTeam)
		api.PUT("/teams/:id/status", tenantHandler.SetTeamStatus)
		api.GET("/teams/:id/grants", groupHandler.ListGrants)

		// Model groups and grants
		api.POST("/model-groups", groupHandler.Create)
		api.GET("/model-groups", groupHandler.List)
		api.GET("/model-groups/:id", groupHandler.Get)
		api.PUT("/model-groups/:id/status", groupHandler.SetActive)
		api.POST("/model-groups/:id/models", groupHandler.AddModel)
		api.PUT("/model-groups/:id/models/:model_id/status", groupHandler.SetModelActive)
		api.POST("/grants", groupHandler.Grant)
		api.DELETE("/grants", groupHandler.Revoke)

		// Price table
		api.GET("/prices", priceHandler.List)
		api.PUT("/prices", priceHandler.Upsert)
		api.POST("/prices/reload", priceHandler.Reload)
	}
}
