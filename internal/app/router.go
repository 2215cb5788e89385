package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"delivery/internal/domain"
	"delivery/internal/handler"
	"delivery/internal/middleware"
	"delivery/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
// ResponseCache, NewRelicApp and MetricsHandler may be nil.
type RouterDeps struct {
	DeliveryHandler  *handler.DeliveryHandler
	DriverHandler    *handler.DriverHandler
	Verifier         middleware.TokenVerifier
	ResponseCache    redis.ResponseCacheInterface
	NewRelicApp      *newrelic.Application
	MetricsHandler   http.Handler
	Log              logrus.FieldLogger
	OperationTimeout time.Duration
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Log))
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	delivery := router.Group("/delivery")
	delivery.Use(middleware.RequestTimeout(deps.OperationTimeout))
	delivery.Use(middleware.Authenticate(deps.Verifier, deps.Log))
	if deps.ResponseCache != nil {
		delivery.Use(middleware.IdempotencyMiddleware(deps.ResponseCache))
	}
	{
		delivery.POST("/assign/:orderId", middleware.RequireRole(domain.RoleAdmin), deps.DeliveryHandler.AssignDelivery)
		delivery.GET("/orders/:driverId", deps.DeliveryHandler.ListDriverOrders)
		delivery.PATCH("/update-status/:orderId", deps.DeliveryHandler.UpdateStatus)
		delivery.GET("/status/:orderId", deps.DeliveryHandler.GetStatus)

		// Driver routes.
		delivery.POST("/drivers", middleware.RequireRole(domain.RoleAdmin, domain.RoleDelivery), deps.DriverHandler.Register)
		delivery.GET("/drivers/:driverId", deps.DriverHandler.GetDriver)
		delivery.PUT("/drivers/:driverId/location", deps.DriverHandler.UpdateLocation)
	}

	return router
}
