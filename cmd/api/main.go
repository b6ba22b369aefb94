package main

import (
	"os"

	_ "agenthub/api/swagger" // swagger docs
	"agenthub/internal/database"
	"agenthub/internal/handler"
	"agenthub/internal/middleware"
	"agenthub/internal/repository"
	"agenthub/internal/service"
	"agenthub/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Agent Governance API
// @version         1.0
// @description     Multi-tenant backend for AI agent vendor lifecycle: onboarding, assessment workflows, permissions and security incident tracking.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Missing .env is fine: containerized deployments pass real env vars
	_ = godotenv.Load("configs/.env")

	logger, err := zap.NewProduction()
	if os.Getenv("GIN_MODE") != "release" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := buildDSN()
	db, err := database.NewConnection(dsn, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	logger.Info("connected to PostgreSQL")

	middleware.InitPermissionMiddleware(db)

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	fieldRepo := repository.NewFieldRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)

	// WebSocket Hub doubles as the realtime event publisher
	wsHub := websocket.NewHub(logger, websocket.NewRepoDirectory(userRepo))
	go wsHub.Run()

	auditService := service.NewAuditService(db, logger)
	userService := service.NewUserService(userRepo)
	catalogService := service.NewCatalogService(fieldRepo, auditService)
	accessService := service.NewAccessService(fieldRepo)
	layoutService := service.NewLayoutService(db, catalogService, accessService, auditService)
	workflowService := service.NewWorkflowService(workflowRepo, userRepo, auditService)
	permissionService := service.NewPermissionService(permissionRepo, auditService)
	agentService := service.NewAgentService(agentRepo, catalogService, auditService)
	assessmentService := service.NewAssessmentService(db, assessmentRepo, agentRepo, workflowRepo, auditService, wsHub)
	incidentService := service.NewIncidentService(incidentRepo, agentRepo, auditService, wsHub)
	statisticsService := service.NewStatisticsService(agentRepo, assessmentRepo, incidentRepo)

	userHandler := handler.NewUserHandler(userService)
	fieldHandler := handler.NewFieldHandler(catalogService, accessService)
	layoutHandler := handler.NewLayoutHandler(layoutService)
	workflowHandler := handler.NewWorkflowHandler(workflowService)
	permissionHandler := handler.NewPermissionHandler(permissionService)
	agentHandler := handler.NewAgentHandler(agentService)
	assessmentHandler := handler.NewAssessmentHandler(assessmentService)
	incidentHandler := handler.NewIncidentHandler(incidentService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origins)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	fieldHandler.RegisterRoutes(root)
	layoutHandler.RegisterRoutes(root)
	workflowHandler.RegisterRoutes(root)
	permissionHandler.RegisterRoutes(root)
	agentHandler.RegisterRoutes(root)
	assessmentHandler.RegisterRoutes(root)
	incidentHandler.RegisterRoutes(root)
	statisticsHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func buildDSN() string {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	host := get("DB_HOST", "localhost")
	port := get("DB_PORT", "5432")
	user := get("DB_USER", "postgres")
	password := get("DB_PASSWORD", "postgres")
	name := get("DB_NAME", "postgres")
	sslMode := get("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name + "?sslmode=" + sslMode
}
