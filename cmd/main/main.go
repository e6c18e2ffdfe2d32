package main

// @title WhatsApp Bridge REST API
// @version 1.0.0
// @description Multi-tenant WhatsApp bridging layer: connection lifecycle, outbound messaging, media persistence, identity recovery and contact reconciliation

// @host localhost:7001
// @BasePath /

// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-API-Key
// @description Service API key for daemon-facing endpoints

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token scoped to one tenant

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"github.com/veltacrm/whatsapp-bridge/pkg/auth"
	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
	"github.com/veltacrm/whatsapp-bridge/pkg/router"

	"github.com/veltacrm/whatsapp-bridge/internal"
)

type Server struct {
	Address string
	Port    string
}

func main() {
	if auth.JWTSecretKey == "" {
		log.Print(nil).Fatal("JWT_SECRET_KEY is required")
	}

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		ErrorHandler:   router.HttpErrorHandler,
		BodyLimit:      router.BodyLimitBytes(),
		ReadBufferSize: 8192, // Increase from default 4096 to handle larger headers (JWT tokens)
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
		Next: func(c *fiber.Ctx) bool {
			return strings.Contains(c.Path(), "docs")
		},
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router Cache
	app.Use(router.HttpCacheInMemory(router.CacheTTLSeconds))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	// Router Default Handler
	app.Get("/favicon.ico", router.ResponseNoContent)

	// Wire Services
	bridge, err := internal.NewApp()
	if err != nil {
		log.Print(nil).Fatal(err.Error())
	}

	// Load Internal Routes
	internal.Routes(app, bridge)

	// Running Startup Tasks
	bridge.Startup()

	// Running Routines Tasks
	bridge.Routines(c)

	// Get Server Configuration with defaults
	var serverConfig Server

	// SERVER_ADDRESS: default "0.0.0.0" (all interfaces)
	serverConfig.Address = env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0")

	// SERVER_PORT: default "7001"
	serverConfig.Port = env.GetEnvStringOrDefault("SERVER_PORT", "7001")

	// Start Server
	go func() {
		if err := app.Listen(serverConfig.Address + ":" + serverConfig.Port); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown
	// Wait 5 Seconds Before Graceful Shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Try To Shutdown Server
	if err := app.ShutdownWithContext(ctxShutdown); err != nil {
		log.Print(nil).Fatal(err.Error())
	}

	// Try To Shutdown Cron
	c.Stop()

	// Close Store Handle
	if err := bridge.Store.Close(); err != nil {
		log.Print(nil).Error(err.Error())
	}
}
