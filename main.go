package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"holder-rewards/config"
	"holder-rewards/handlers"
	"holder-rewards/middleware"
	"holder-rewards/models"
	"holder-rewards/services"
	"holder-rewards/utils"
	"holder-rewards/workers"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errChainNotConfigured = errors.New("chain RPC not configured")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	logCloser := utils.SetupLogging(cfg.LogFile)
	defer logCloser.Close()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Chain: ownership checks + USDT payouts ---
	rewardCfg := services.RewardServiceConfigFrom(cfg)
	var verifier services.OwnershipVerifier = services.OwnershipFunc(
		func(context.Context, string, string, string, models.TokenStandard) (bool, error) {
			return false, errChainNotConfigured
		})
	var transferer services.Transferer = services.TransferFunc(
		func(context.Context, string, decimal.Decimal) (string, error) {
			return "", errChainNotConfigured
		})
	if cfg.ChainEnabled() {
		client, err := ethclient.DialContext(ctx, cfg.PolygonRPC)
		if err != nil {
			log.Fatal("failed to connect to Polygon RPC:", err)
		}
		defer client.Close()

		verifier = services.NewEthOwnershipVerifier(client, cfg.OwnershipRPS)
		usdt, err := services.NewUSDTTransferer(client, services.USDTConfig{
			TokenAddress: cfg.USDTAddress,
			PrivateKey:   cfg.PolygonPrivateKey,
			ChainID:      cfg.PolygonChainID,
			Decimals:     cfg.USDTDecimals,
		})
		if err != nil {
			log.Fatal("failed to initialize USDT transferer:", err)
		}
		transferer = usdt
	} else {
		log.Println("⚠️  POLYGON_RPC / POLYGON_PRIVATE_KEY / USDT_ADDRESS not set — claims disabled")
		rewardCfg.ClaimsDisabled = true
	}

	rewardService := services.NewRewardService(db, verifier, transferer, rewardCfg)
	authService := services.NewWalletAuthService(db, cfg.JWTSecret, cfg.LoginNonceTTL, cfg.SessionTTL, nil)

	// --- Scheduled maintenance + ledger export ---
	var uploader services.LedgerUploader
	if cfg.R2Enabled() {
		r2, err := utils.NewR2Uploader(ctx, utils.R2Config{
			AccountID:       cfg.CloudflareAccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
		})
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		uploader = r2
	} else {
		log.Println("⚠️  R2 credentials not set — daily ledger export disabled")
	}
	sched, err := rewardService.StartMaintenanceScheduler(ctx, uploader, utils.ExportKeyPrefix(cfg.LedgerExportPrefix))
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(cfg.LoginNonceTTL),
		gocron.NewTask(func() {
			if _, err := authService.SweepExpiredNonces(ctx); err != nil {
				log.Printf("[Scheduler] Nonce sweep error: %v", err)
			}
		}),
	); err != nil {
		log.Fatal("failed to schedule nonce sweep:", err)
	}

	// --- Marketplace → holdings ---
	if cfg.MarketplaceCreator != "" {
		client := workers.NewMarketplaceClient(cfg.MarketplaceURL, cfg.MarketplaceAPIKey, cfg.MarketplaceCreator)
		workers.NewHoldingsSyncWorker(client, rewardService.Holdings, cfg.HoldingsPollInterval).Start(ctx)
	} else {
		log.Println("⚠️  MARKETPLACE_CREATOR not set — holdings sync disabled")
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOriginList(), ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "claims_paused": rewardService.ClaimsDisabled()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// 🔐 Everything below must come through the gateway
	app.Use(middleware.ServiceAuthMiddleware(cfg.ServiceToken))
	handlers.SetupAuthRoutes(app, authService, middleware.NewLoginRateLimiter(cfg.LoginAttemptsPerHour))
	handlers.SetupRewardRoutes(app, rewardService, cfg.JWTSecret)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.ListenAddr)
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)
	log.Printf("✅ Daily payout cap: %s, claims paused: %v", cfg.DailyPayoutCap, rewardService.ClaimsDisabled())

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.LockTTL)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
}
