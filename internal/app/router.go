// internal/app/router.go
package app

import (
	brokerhandler "licentra-service/internal/handlers/broker"
	licensehandler "licentra-service/internal/handlers/license"
	promotionhandler "licentra-service/internal/handlers/promotion"
	subscriptionhandler "licentra-service/internal/handlers/subscription"
	transactionhandler "licentra-service/internal/handlers/transaction"
	"licentra-service/internal/middleware"
	brokersvc "licentra-service/internal/service/broker"
	licensesvc "licentra-service/internal/service/license"
	promosvc "licentra-service/internal/service/promotion"
	"licentra-service/internal/service/settlement"
	subsvc "licentra-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Logger     *zap.Logger
	Licenses   *licensesvc.LicenseService
	Lifecycle  *subsvc.LifecycleService
	Settlement *settlement.SettlementService
	Brokers    *brokersvc.BrokerService
	Promotions *promosvc.PromotionService
}

// NewRouter builds the HTTP surface. Identity comes from gateway headers;
// everything under /admin additionally requires the admin role.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	licenses := licensehandler.NewHandler(deps.Licenses)
	subscriptions := subscriptionhandler.NewHandler(deps.Lifecycle)
	transactions := transactionhandler.NewHandler(deps.Settlement)
	brokers := brokerhandler.NewHandler(deps.Brokers)
	promotions := promotionhandler.NewHandler(deps.Promotions)

	api := r.Group("/api/v1")
	api.Use(middleware.Identity())
	{
		api.GET("/licenses", licenses.List)
		api.GET("/licenses/:key", licenses.GetByKey)

		api.GET("/subscriptions", subscriptions.List)
		api.GET("/subscriptions/current", subscriptions.Current)
		api.GET("/subscriptions/:id", subscriptions.Get)

		api.POST("/transactions", transactions.Create)
		api.GET("/transactions", transactions.List)
		api.GET("/transactions/:id", transactions.Get)

		api.POST("/brokers/enroll", brokers.Enroll)
		api.GET("/brokers/me", brokers.Me)
		api.GET("/brokers/validate", brokers.Validate)

		api.GET("/promotions/validate", promotions.Validate)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/licenses", licenses.Create)
		admin.PATCH("/licenses/:id", licenses.Update)
		admin.POST("/licenses/:id/activate", licenses.Activate)
		admin.POST("/licenses/:id/deactivate", licenses.Deactivate)

		admin.POST("/users/:user_id/subscriptions/activate", subscriptions.Activate)
		admin.POST("/subscriptions/:id/deactivate", subscriptions.Deactivate)
		admin.DELETE("/subscriptions/:id", subscriptions.Delete)
		admin.POST("/subscriptions/sweep", subscriptions.Sweep)

		admin.PATCH("/transactions/:id", transactions.Update)
		admin.POST("/transactions/:id/confirm", transactions.Confirm)
		admin.POST("/transactions/:id/cancel", transactions.Cancel)
		admin.GET("/transactions/stats", transactions.Stats)

		admin.POST("/brokers/:user_id/enroll", brokers.Enroll)
		admin.POST("/brokers/:user_id/deactivate", brokers.Deactivate)

		admin.POST("/promotions", promotions.Create)
		admin.GET("/promotions", promotions.List)
		admin.POST("/promotions/:code/deactivate", promotions.Deactivate)
	}

	return r
}
