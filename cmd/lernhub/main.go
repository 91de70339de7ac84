package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Lernhub/app/controllers"
	"github.com/ManuelReschke/Lernhub/internal/pkg/billing"
	"github.com/ManuelReschke/Lernhub/internal/pkg/cache"
	"github.com/ManuelReschke/Lernhub/internal/pkg/database"
	"github.com/ManuelReschke/Lernhub/internal/pkg/entitlements"
	"github.com/ManuelReschke/Lernhub/internal/pkg/env"
	"github.com/ManuelReschke/Lernhub/internal/pkg/jobqueue"
	"github.com/ManuelReschke/Lernhub/internal/pkg/mail"
	"github.com/ManuelReschke/Lernhub/internal/pkg/middleware"
	"github.com/ManuelReschke/Lernhub/internal/pkg/notification"
	"github.com/ManuelReschke/Lernhub/internal/pkg/router"
)

// Application bundles the HTTP server with the background workers it owns.
type Application struct {
	App        *fiber.App
	db         *gorm.DB
	redis      *redis.Client
	queue      *jobqueue.Queue
	dispatcher *notification.QueueDispatcher
}

func main() {
	if !env.SetupEnvFile() {
		log.Info("No .env file found, using process environment")
	}
	if env.IsDev() {
		log.SetLevel(log.LevelDebug)
	}

	application, err := NewApplication(context.Background())
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := application.App.Listen(addr); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	application.Shutdown()
}

func NewApplication(ctx context.Context) (*Application, error) {
	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	redisClient := cache.NewClient(ctx, cache.OptionsFromEnv())

	a := &Application{db: db, redis: redisClient}

	var notifier billing.Notifier = notification.Nop{}
	if env.GetBool("NOTIFICATIONS_ENABLED", true) {
		sender, err := mail.NewSenderFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("mail sender: %w", err)
		}
		a.queue = jobqueue.NewQueue(redisClient, sender, env.GetInt("JOBQUEUE_WORKERS", 3))
		a.queue.Start()
		a.dispatcher = notification.NewQueueDispatcher(a.queue, env.GetDuration("NOTIFICATION_TIMEOUT", notification.DefaultEnqueueTimeout))
		notifier = a.dispatcher
	}

	svc := billing.NewServiceFromDB(db, billing.NewStripeCustomersFromEnv(), notifier, env.GetEnv("PUBLIC_APP_URL", "http://localhost:4000"))

	tokens, err := middleware.NewTokenVerifierFromEnv()
	if err != nil {
		// Access routes answer 401 until a key is configured.
		log.Warnf("Token verification disabled: %v", err)
	}

	health := controllers.NewHealthController(map[string]controllers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"cache": func(ctx context.Context) error {
			return cache.Ping(ctx, redisClient)
		},
	})

	// init fiber app
	a.App = fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // webhook payloads are small
	})

	// recovery and logging
	a.App.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(a.App, router.Dependencies{
		Webhooks: controllers.NewWebhookControllerFromEnv(svc),
		Access:   controllers.NewAccessController(entitlements.NewEvaluator(svc.Repository())),
		Tokens:   tokens,
		Health:   health,
	})

	return a, nil
}

// Shutdown stops accepting requests, lets queued notifications land and stops the workers.
func (a *Application) Shutdown() {
	log.Info("Shutting down...")
	if err := a.App.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("HTTP shutdown: %v", err)
	}
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	if a.queue != nil {
		a.queue.Stop()
	}
	if err := a.redis.Close(); err != nil {
		log.Errorf("Redis close: %v", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
