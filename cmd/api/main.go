package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"errand-market/internal/config"
	"errand-market/internal/modules/chat"
	"errand-market/internal/modules/discovery"
	"errand-market/internal/modules/fulfillment"
	"errand-market/internal/modules/matching"
	"errand-market/internal/modules/request"
	"errand-market/internal/modules/user"
	"errand-market/internal/platform/notify"
	"errand-market/internal/platform/storage"
	"errand-market/internal/realtime"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}
	uploader := storage.NewUploader(s3.NewFromConfig(awsCfg), cfg.AWSRegion)

	var notifier matching.NotifierInterface
	if cfg.SenderEmail != "" {
		notifier = notify.NewMailer(sesv2.NewFromConfig(awsCfg), cfg.SenderEmail)
	} else {
		log.Println("SENDER_EMAIL not set, accept notifications disabled.")
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	// Repositories
	userRepo := user.NewRepository(pool)
	requestRepo := request.NewRepository(pool)
	matchingRepo := matching.NewRepository(pool)
	fulfillmentRepo := fulfillment.NewRepository(pool)
	chatRepo := chat.NewRepository(pool)

	// Services
	userSvc := user.NewService(userRepo, uploader, cfg.ProfileBucket, cfg.JWTSecret)
	requestSvc := request.NewService(requestRepo)
	matchingSvc := matching.NewService(matchingRepo, notifier)
	fulfillmentSvc := fulfillment.NewService(fulfillmentRepo, uploader, cfg.ReceiptBucket)
	chatSvc := chat.NewService(chatRepo, hub)
	discoverySvc := discovery.NewService(requestRepo, userRepo)

	// Handlers
	userHandler := user.NewHandler(userSvc)
	requestHandler := request.NewHandler(requestSvc)
	matchingHandler := matching.NewHandler(matchingSvc)
	fulfillmentHandler := fulfillment.NewHandler(fulfillmentSvc)
	chatHandler := chat.NewHandler(chatSvc, cfg.ClientOrigin)
	discoveryHandler := discovery.NewHandler(discoverySvc)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	if cfg.ClientOrigin != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{cfg.ClientOrigin},
		}))
	}

	public := e.Group("/api")
	userHandler.RegisterPublicRoutes(public)

	// The query-param token lookup exists for the WebSocket subscription,
	// which cannot set an Authorization header from the browser.
	authed := e.Group("/api",
		echojwt.WithConfig(echojwt.Config{
			SigningKey:  []byte(cfg.JWTSecret),
			TokenLookup: "header:Authorization:Bearer ,query:token",
		}),
		user.AuthContext(),
	)
	userHandler.RegisterRoutes(authed)
	requestHandler.RegisterRoutes(authed)
	matchingHandler.RegisterRoutes(authed)
	fulfillmentHandler.RegisterRoutes(authed)
	chatHandler.RegisterRoutes(authed)
	discoveryHandler.RegisterRoutes(authed)

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
