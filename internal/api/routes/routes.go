package routes

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/api/handlers"
	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/consent"
	"github.com/Wikid82/warden/internal/database"
	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/services"
)

// Deps carries per-process state the routes need beyond the store.
type Deps struct {
	RunID     uint
	StartTime time.Time
}

// Register wires up API routes and performs automatic migrations.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, deps Deps) error {
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	tokens := services.NewTokenService(cfg.TokenSecret)
	notifier := services.NewNotificationService(cfg.NotifyURLs)
	policySvc := services.NewPolicyService(db)
	auditSvc := services.NewAuditService(db)
	runSvc := services.NewRunService(db)

	broker := consent.NewBroker(func() consent.DecisionChannel {
		return &consent.PipeChannel{HelperPath: cfg.ConsentHelperPath}
	}, cfg.ConsentTimeout)

	elevationSvc := services.NewElevationService(
		policySvc, auditSvc, broker, notifier,
		cfg.DefaultDecision == "allow",
	)
	grantSvc := services.NewGrantService(db, policySvc, cfg.MaxTemporarySeconds)

	router.GET("/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	counter := middleware.NewRequestCounter(db)

	api := router.Group("/")
	api.Use(middleware.RequestID(), middleware.RequestLogger(db, counter), middleware.Auth(tokens))

	aboutHandler := handlers.NewAboutHandler(runSvc, deps.RunID, deps.StartTime, cfg.SocketPath)
	api.GET("/about", middleware.RequireScope(services.ScopeRead), aboutHandler.About)

	launchHandler := handlers.NewLaunchHandler(elevationSvc, grantSvc)
	api.POST("/launch", middleware.RequireScope(services.ScopeLaunch), launchHandler.Launch)
	api.POST("/elevate/temporary", middleware.RequireScope(services.ScopeLaunch), launchHandler.ElevateTemporary)

	logHandler := handlers.NewLogHandler(auditSvc)
	logGroup := api.Group("/log")
	logGroup.Use(middleware.RequireScope(services.ScopeLogRead))
	{
		logGroup.GET("/jit", logHandler.Query)
		logGroup.GET("/jit/:id", logHandler.Get)
	}

	policyHandler := handlers.NewPolicyHandler(policySvc)
	policyGroup := api.Group("/policy")
	{
		policyGroup.GET("/me", middleware.RequireScope(services.ScopeRead), policyHandler.Me)
		policyGroup.PUT("/me/:id", middleware.RequireScope(services.ScopeRead), policyHandler.SetMe)

		read := policyGroup.Group("/")
		read.Use(middleware.RequireScope(services.ScopePolicyRead))
		{
			read.GET("/profiles", policyHandler.ListProfiles)
			read.GET("/profiles/:id", policyHandler.GetProfile)
			read.GET("/assignments", policyHandler.ListAssignments)
			read.GET("/users", policyHandler.ListUsers)
		}

		write := policyGroup.Group("/")
		write.Use(middleware.RequireScope(services.ScopePolicyWrite))
		{
			write.POST("/profiles", policyHandler.CreateProfile)
			write.PUT("/profiles/:id", policyHandler.UpdateProfile)
			write.DELETE("/profiles/:id", policyHandler.DeleteProfile)
			write.PUT("/assignments/:id", policyHandler.SetAssignment)
		}
	}

	return nil
}
