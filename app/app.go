package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"krx-signal-board/api"
	"krx-signal-board/cache"
	"krx-signal-board/config"
	"krx-signal-board/database"
	"krx-signal-board/database/views"
	"krx-signal-board/notifications"
	"krx-signal-board/realtime"
	"krx-signal-board/simulation"
	"krx-signal-board/snapshot"
	"krx-signal-board/websocket"
)

// App represents the main application
type App struct {
	config *config.Config

	db        *database.Database
	analytics *database.DB
	redis     *cache.RedisClient

	indexCache *cache.IndexCache
	engine     *simulation.Engine
	viewRepo   *views.Repository
	broker     *realtime.Broker
	hub        *websocket.Hub
	refresher  *IndexRefresher
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Start starts the application
func (a *App) Start() error {
	// Setup context for graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Database Connection (optional — view history degrades gracefully)
	fmt.Println("🗄️  Connecting to database...")

	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}

	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		log.Printf("⚠️  Database connection failed, view history disabled: %v", err)
	} else {
		a.db = db
	}

	if a.db != nil {
		analytics, err := database.NewConnection(database.Config{
			Host:     a.config.DatabaseHost,
			Port:     a.config.DatabasePort,
			User:     a.config.DatabaseUser,
			Password: a.config.DatabasePassword,
			DBName:   a.config.DatabaseName,
		})
		if err != nil {
			log.Printf("⚠️  Analytics connection failed, daily aggregates disabled: %v", err)
		} else {
			a.analytics = analytics
		}
	}

	// 2. Redis Connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)

	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. View history repository and schema
	if a.db != nil {
		if a.analytics != nil {
			a.viewRepo = views.NewRepository(a.db.DB(), a.analytics.Conn())
		} else {
			a.viewRepo = views.NewRepository(a.db.DB(), nil)
		}
		if err := a.viewRepo.InitSchema(); err != nil {
			return fmt.Errorf("schema initialization failed: %w", err)
		}
	}

	// 4. Snapshot store client + caches
	storeClient := snapshot.NewClient(a.config.Snapshot)
	snapCache := cache.NewSnapshotCache(storeClient, a.redis, a.config.Cache.SnapshotTTL)
	a.indexCache = cache.NewIndexCache(storeClient, a.redis, a.config.Cache.IndexTTL)

	// 5. Override engine
	selectionStore := simulation.NewSelectionStore()
	fetcher := simulation.NewOverrideFetcher(snapCache)
	a.engine = simulation.NewEngine(a.indexCache, &baselineProvider{client: storeClient}, fetcher, selectionStore)

	// 6. Realtime Broker + WebSocket Hub
	a.broker = realtime.NewBroker()
	go a.broker.Run()
	a.hub = websocket.NewHub()

	// 7. Background index refresher
	a.refresher = NewIndexRefresher(a.indexCache, snapCache, a.viewRepo, a.broker, a.hub, a.config.Cache.RefreshInterval)
	go a.refresher.Start()

	// 8. Notifications
	recorder := notifications.NewViewRecorder(a.viewRepo)
	webhook := notifications.NewOverrideWebhook(a.config.WebhookURL)

	// 9. Start API Server
	apiServer := api.NewServer(a.engine, a.viewRepo, recorder, webhook, a.broker, a.hub)
	go func() {
		if err := apiServer.Start(a.config.Port); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 10. Wait for interrupt and perform graceful shutdown
	return a.gracefulShutdown(cancel)
}

// baselineProvider adapts the snapshot client to the engine's
// BaselineProvider interface.
type baselineProvider struct {
	client *snapshot.Client
}

func (p *baselineProvider) Baseline(ctx context.Context, date string) (*simulation.SimulationData, error) {
	return p.client.FetchBaseline(ctx, date)
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	// Cancel context to stop all goroutines
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown tasks with timeout
	shutdownComplete := make(chan struct{})
	go func() {
		if a.refresher != nil {
			fmt.Println("🔄 Stopping index refresher...")
			a.refresher.Stop()
		}

		// Close database connections
		if a.analytics != nil {
			if err := a.analytics.Close(); err != nil {
				log.Printf("Error closing analytics connection: %v", err)
			}
		}
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		// Close Redis connection
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
