package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streadway/amqp"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/repositories"
	"storefront/internal/server"
	"storefront/internal/services"
	"storefront/pkg/kafka"
	"storefront/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Database ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to %s database: %v", cfg.Database.Driver, err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Sessions ---
	sessions, closeSessions := newSessionStore(cfg)
	defer closeSessions()

	// --- Events ---
	publisher, closeEvents := newPublisher(cfg)

	// --- Repositories and Services ---
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)

	app := server.New(server.Deps{
		Products:      services.NewProductService(productRepo, publisher),
		Carts:         services.NewCartService(cartRepo, productRepo, publisher),
		Auth:          services.NewAuthService(userRepo, sessions, cfg.Auth),
		SessionTTL:    cfg.Auth.SessionTTL,
		SecureCookies: !cfg.IsDevelopment(),
		Ping:          func(ctx context.Context) error { return database.Ping(ctx, db) },
	})

	// --- Start HTTP Server ---
	log.Printf("Starting %s on port %s", cfg.ServiceName, cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	// Flush events only after in-flight requests are done publishing.
	closeEvents()
	log.Println("Server gracefully stopped")
}

// newSessionStore uses Redis when REDIS_ADDR is set and an in-process store otherwise.
func newSessionStore(cfg *config.Config) (repositories.SessionStore, func()) {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, keeping sessions in memory")
		return repositories.NewMemorySessionStore(cfg.Auth.SessionTTL), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := repositories.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}
	return repositories.NewRedisSessionStore(rdb, cfg.Auth.SessionTTL), func() {
		if err := rdb.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
}

// newPublisher connects the configured broker. With RabbitMQ an audit consumer
// bound to every routing key is started as well.
func newPublisher(cfg *config.Config) (events.Publisher, func()) {
	switch cfg.Events.Driver {
	case "rabbitmq":
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.Events.RabbitMQURL,
			Exchange: cfg.Events.RabbitMQExchange,
		})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}

		log.Println("Starting RabbitMQ audit consumer...")
		err = mqClient.ConsumeEvents(cfg.ServiceName+".audit", "#", func(msg amqp.Delivery) error {
			return events.Audit(msg.Body)
		})
		if err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}

		bus := events.NewBus(mqClient, cfg.ServiceName)
		return bus, func() {
			if err := bus.Close(); err != nil {
				log.Printf("Error closing RabbitMQ client: %v", err)
			}
		}

	case "kafka":
		producer := kafka.NewProducer(cfg.Events.KafkaBrokers, 256)
		producer.Start()

		bus := events.NewBus(producer, cfg.ServiceName)
		return bus, func() {
			if err := bus.Close(); err != nil {
				log.Printf("Error closing Kafka producer: %v", err)
			}
		}

	default:
		return events.Noop{}, func() {}
	}
}
