package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/FranMor97/Book-Server/internal/auth"
	"github.com/FranMor97/Book-Server/internal/cache"
	"github.com/FranMor97/Book-Server/internal/config"
	"github.com/FranMor97/Book-Server/internal/handlers"
	"github.com/FranMor97/Book-Server/internal/handlers/ws"
	"github.com/FranMor97/Book-Server/internal/httpx"
	"github.com/FranMor97/Book-Server/internal/logger"
	"github.com/FranMor97/Book-Server/internal/metrics"
	"github.com/FranMor97/Book-Server/internal/middleware"
	"github.com/FranMor97/Book-Server/internal/repository"
	"github.com/FranMor97/Book-Server/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

func main() {
	cfg, envLoaded, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	zl, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer zl.Sync()
	if !envLoaded {
		zl.Info("no .env file found, using system environment variables")
	}

	app := fiber.New(fiber.Config{
		AppName:   "Book Server",
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	db, err := repository.InitDB(cfg)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}

	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisCache.Ping(); err != nil {
		zl.Warn("redis connection failed, running without cache", zap.Error(err))
		redisCache = nil
	} else {
		zl.Info("redis cache connected", zap.String("addr", cfg.RedisAddr))
		defer redisCache.Close()
	}

	messageCache := cache.NewMessageCache(redisCache)
	userCache := cache.NewUserCache(redisCache)

	userRepo := repository.NewUserRepository(db)
	bookRepo := repository.NewBookRepository(db)
	groupRepo := repository.NewReadingGroupRepository(db)
	groupMessageRepo := repository.NewGroupMessageRepository(db)

	gate := auth.NewGate(cfg.JWTSecret)
	users := service.NewUserDirectory(userRepo, userCache, zl)
	notifier := service.NewGroupNotifier(groupMessageRepo, messageCache, users, zl)
	groupService := service.NewReadingGroupService(groupRepo, groupMessageRepo, bookRepo, notifier, messageCache, zl, cfg.MaxMessageLength)

	hub := ws.NewHub(zl, ws.HubOptions{
		RateRPS:      cfg.WSRateRPS,
		RateBurst:    cfg.WSRateBurst,
		PingInterval: ws.DefaultPingInterval,
		PongTimeout:  ws.DefaultPongTimeout,
	})
	notifier.SetBroadcaster(hub)

	wsHandler := handlers.NewWebSocketHandler(groupService, gate, hub, userCache, cfg.AuthGraceWindow, zl)
	groupHandler := handlers.NewReadingGroupHandler(groupService, zl)

	api := app.Group("/api",
		middleware.OriginAllowed(cfg.AllowedOrigins),
		middleware.AuthRequired(gate),
		limiter.New(limiter.Config{
			Max:        120,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if uid, err := httpx.LocalUint(c, "userID"); err == nil {
					return "user:" + strconv.FormatUint(uint64(uid), 10)
				}
				return c.IP()
			},
		}),
	)
	groupHandler.Register(api)

	app.Use("/ws",
		middleware.OriginAllowed(cfg.AllowedOrigins),
		middleware.AuthOptional(gate),
		wsHandler.Upgrade,
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	app.Get("/metrics", middleware.AuthRequired(gate), middleware.RequireRole("admin"), metrics.Handler())

	app.Get("/health", func(c *fiber.Ctx) error {
		online, err := userCache.GetOnlineUsers()
		if err != nil {
			zl.Debug("online users lookup failed", zap.Error(err))
		}
		return c.JSON(fiber.Map{
			"status":       "ok",
			"connections":  wsHandler.GetHub().Count(),
			"online_users": len(online),
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		zl.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zl.Error("shutdown failed", zap.Error(err))
		}
	}()

	zl.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zl.Fatal("failed to start server", zap.Error(err))
	}
}
