package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"nativeai_backend/internal/ai"
	"nativeai_backend/internal/auth"
	"nativeai_backend/internal/config"
	"nativeai_backend/internal/handlers"
	"nativeai_backend/internal/logger"
	"nativeai_backend/internal/middleware"
	"nativeai_backend/internal/models"
	"nativeai_backend/internal/quotastore"
	"nativeai_backend/internal/repositories"
	"nativeai_backend/internal/routes"
	"nativeai_backend/internal/services"
	"nativeai_backend/internal/utils"
	"nativeai_backend/internal/validator"
	"nativeai_backend/internal/workers"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	auth.Init(cfg.JWT.Secret, cfg.JWT.TTL)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := gormDB.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.UserPlan{},
		&models.PeriodUsage{},
		&models.PeriodAllowance{},
		&models.Conversation{},
		&models.Message{},
	); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	maintenance := workers.NewMaintenanceWorker(gormDB, repositories.NewUserRepository(gormDB))
	maintenance.Start(workerCtx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	serviceContainer := initializeServices(cfg, gormDB)

	appHandlers := initializeHandlers(serviceContainer)

	ginRouter := initializeGinRouter()

	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter
}

func initializeServices(cfg *config.Config, gormDB *gorm.DB) *services.ServiceContainer {
	counterStore, err := quotastore.NewStore(quotastore.Config{
		Type:          cfg.Quota.Store,
		RedisAddr:     cfg.Quota.RedisAddr,
		RedisPassword: cfg.Quota.RedisPassword,
		RedisDB:       cfg.Quota.RedisDB,
	}, gormDB)
	if err != nil {
		logger.Fatal("Failed to initialize quota counter store", "error", err)
	}
	logger.Info("Quota counter store initialized", "type", cfg.Quota.Store)

	provider := ai.New("mistral", cfg.AI.BaseURL, cfg.AI.APIKey, ai.WithHTTPClient(&http.Client{
		Timeout: time.Duration(cfg.AI.TimeoutSec) * time.Second,
	}))

	var mailer *utils.EmailSender
	if cfg.Email.Enabled {
		mailer = utils.NewEmailSender(cfg)
		logger.Info("Email sender initialized", "host", cfg.Email.SMTPHost)
	} else {
		logger.Warn("Email sending disabled, top-up notifications will be skipped")
	}

	userRepo := repositories.NewUserRepository(gormDB)
	planRepo := repositories.NewPlanRepository(gormDB)
	conversationRepo := repositories.NewConversationRepository(gormDB)

	caps := services.Caps{
		FreeWeekly: cfg.Quota.FreeWeeklyCap,
		ProMonthly: cfg.Quota.ProMonthlyCap,
	}

	authService := services.NewAuthService(userRepo)
	quotaService := services.NewQuotaService(counterStore, planRepo, caps)
	quotaAdminService := services.NewQuotaAdminService(counterStore, planRepo, userRepo, mailer)
	chatService := services.NewChatService(provider, quotaService, conversationRepo, services.ChatConfig{
		Model:        cfg.AI.Model,
		SystemPrompt: cfg.AI.SystemPrompt,
		Temperature:  cfg.AI.Temperature,
		CallTimeout:  time.Duration(cfg.AI.TimeoutSec) * time.Second,
	})

	return &services.ServiceContainer{
		AuthService:       authService,
		ChatService:       chatService,
		QuotaService:      quotaService,
		QuotaAdminService: quotaAdminService,
	}
}

func initializeHandlers(services *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:  handlers.NewAuthHandler(baseHandler, services.AuthService),
		ChatHandler:  handlers.NewChatHandler(baseHandler, services.ChatService, services.QuotaService),
		QuotaHandler: handlers.NewQuotaHandler(baseHandler, services.QuotaService),
		AdminHandler: handlers.NewAdminHandler(baseHandler, services.QuotaAdminService, services.QuotaService),
	}
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.Admin.Email
	adminPassword := cfg.Admin.Password

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("Admin email or password not configured. Skipping admin seeding.")
		return nil
	}

	var adminUser models.User
	result := db.Where("LOWER(email) = LOWER(?)", adminEmail).First(&adminUser)

	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		return nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found. Creating first admin...", "email", adminEmail)

	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Role:         models.UserRoleAdmin,
	}

	if err := db.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("Successfully created first admin user", "email", adminEmail)
	return nil
}
