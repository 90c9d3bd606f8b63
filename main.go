package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anime-loyalty-system/config"
	"anime-loyalty-system/handlers"
	"anime-loyalty-system/models"
	"anime-loyalty-system/services"
	"anime-loyalty-system/utils"
	"anime-loyalty-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Auth.JWTSecret == "" {
		if !cfg.Database.Local() {
			logrus.Fatal("AUTH_JWT_SECRET must be set when running against postgres")
		}
		// Local/demo mode gets a throwaway secret; sessions die with the process.
		cfg.Auth.JWTSecret = "local-dev-secret"
		logrus.Warn("⚠️  AUTH_JWT_SECRET not set, using a local development secret")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB, enough for product images
	})

	allowedOrigins := cfg.Server.AllowedOrigins
	originsList := strings.Split(allowedOrigins, ",")
	for i, origin := range originsList {
		originsList[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(originsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Persistence mode is picked once at startup: postgres when configured,
	// embedded sqlite otherwise.
	var dialector gorm.Dialector
	if cfg.Database.Local() {
		logrus.Infof("DATABASE_URL not set, using local sqlite store at %s", cfg.Database.LocalPath)
		dialector = sqlite.Open(cfg.Database.LocalPath)
	} else {
		dialector = postgres.Open(cfg.Database.URL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.PointRecord{},
		&models.Activity{},
		&models.DailyTaskState{},
		&models.Product{},
		&models.Purchase{},
		&models.Affiliate{},
		&models.AffiliateClick{},
		&models.AffiliateConversion{},
		&models.AnalyticsEvent{},
	); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err)
	}

	if err := utils.InitR2(); err != nil {
		logrus.Fatalf("failed to initialize R2 client: %v", err)
	}
	if !utils.R2Enabled() {
		logrus.Info("⚠️  R2 not configured, product image uploads disabled")
	}

	pointsService := services.NewPointsService(db)
	taskService := services.NewDailyTaskService(db, pointsService)
	authService := services.NewAuthService(db, pointsService, taskService,
		cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	affiliateService := services.NewAffiliateService(db, cfg.Affiliate.SignupCommission, cfg.Affiliate.DefaultRate)
	analyticsService := services.NewAnalyticsService(db)
	productService := services.NewProductService(db)
	checkoutService := services.NewCheckoutService(db, pointsService, taskService, analyticsService)
	newsService := services.NewNewsService(cfg.News.AniListURL, cfg.News.RSSProxyURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the feed cache in the background, then keep it fresh.
	go func() {
		if err := newsService.Refresh(ctx); err != nil {
			logrus.Warnf("initial feed refresh failed: %v", err)
		}
	}()
	newsService.StartRefreshScheduler(time.Duration(cfg.News.RefreshMinutes) * time.Minute)

	earningsClient := workers.NewEarningsSyncClient(db)
	go workers.PollEarnings(ctx, earningsClient, time.Duration(cfg.Affiliate.EarningsSyncSeconds)*time.Second)

	cookieTTL := time.Duration(cfg.Affiliate.CookieTTLDays) * 24 * time.Hour
	handlers.SetupAuthRoutes(app, authService, affiliateService, analyticsService)
	handlers.SetupLoyaltyRoutes(app, authService, pointsService, taskService, analyticsService)
	handlers.SetupAffiliateRoutes(app, db, authService, affiliateService, cookieTTL)
	handlers.SetupShopRoutes(app, db, authService, productService, checkoutService, affiliateService)
	handlers.SetupNewsRoutes(app, newsService)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := app.Listen(addr); err != nil {
			logrus.Errorf("Server error: %v", err)
		}
	}()

	logrus.Infof("✅ Server running on http://localhost%s", addr)
	logrus.Info("✅ Feed refresh scheduler running")
	logrus.Infof("✅ Earnings reconciliation running (every %ds)", cfg.Affiliate.EarningsSyncSeconds)
	logrus.Infof("✅ CORS configured for origins: %s", strings.Join(originsList, ","))

	<-ctx.Done()
	logrus.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		logrus.Errorf("shutdown error: %v", err)
	}
}
