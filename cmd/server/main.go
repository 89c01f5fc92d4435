package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AustinWheel/diving-duck-sub000/internal/aggregate"
	"github.com/AustinWheel/diving-duck-sub000/internal/alerting"
	"github.com/AustinWheel/diving-duck-sub000/internal/api"
	"github.com/AustinWheel/diving-duck-sub000/internal/api/health"
	"github.com/AustinWheel/diving-duck-sub000/internal/events"
	"github.com/AustinWheel/diving-duck-sub000/internal/metrics"
	"github.com/AustinWheel/diving-duck-sub000/internal/notifier"
	"github.com/AustinWheel/diving-duck-sub000/internal/quota"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
	"github.com/AustinWheel/diving-duck-sub000/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "warden-server",
	Short: "Warden Server - Event ingestion and SMS alerting",
	Long: `Warden Server receives application events, stores them in
time-bucketed form, evaluates alert thresholds inline, and dispatches
SMS notifications when thresholds are crossed.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("warden-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	// Get JWT secret from environment
	jwtSecret := os.Getenv("WARDEN_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("WARDEN_JWT_SECRET environment variable is required")
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Control-plane storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Event storage
	var eventStore storage.EventStorage
	if cfg.ClickHouse.Enabled {
		ch := storage.NewClickHouseStorage(&storage.ClickHouseConfig{
			Addresses:     cfg.ClickHouse.Addresses,
			Database:      cfg.ClickHouse.Database,
			Username:      cfg.ClickHouse.Username,
			Password:      cfg.ClickHouse.Password,
			Compression:   true,
			RetentionDays: cfg.ClickHouse.RetentionDays,
		})
		if err := ch.Open(); err != nil {
			return fmt.Errorf("open clickhouse: %w", err)
		}
		defer ch.Close()
		if err := ch.Migrate(); err != nil {
			return fmt.Errorf("migrate clickhouse: %w", err)
		}
		eventStore = ch
		log.Printf("event storage: clickhouse at %v", cfg.ClickHouse.Addresses)
	} else {
		eventStore = storage.NewMemoryEventStorage()
		log.Printf("event storage: in-memory (events are lost on restart)")
	}

	// Live event stream (optional)
	var live *events.LivePublisher
	if cfg.NATS.Enabled {
		var err error
		live, err = events.NewLivePublisher(cfg.NATS.URL)
		if err != nil {
			log.Printf("nats unavailable, live stream disabled: %v", err)
		} else {
			defer live.Close()
			log.Printf("live event stream on %s", cfg.NATS.URL)
		}
	}

	// SMS gateway (optional; alerts fail with a recorded error without it)
	var sender notifier.Sender
	credential := os.Getenv("WARDEN_GATEWAY_CREDENTIAL")
	if cfg.Gateway.URL != "" && credential != "" {
		client, err := notifier.NewSMSClient(notifier.SMSConfig{
			GatewayURL:   cfg.Gateway.URL,
			Credential:   credential,
			MaxPerSecond: cfg.Gateway.MaxPerSecond,
		})
		if err != nil {
			return fmt.Errorf("sms gateway: %w", err)
		}
		sender = client
	} else {
		log.Printf("sms gateway not configured, alerts will not be delivered")
	}

	// Wire the pipeline
	quotaSvc := quota.NewService(store)
	dispatcher := notifier.NewDispatcher(sender, store.Alerts(), quotaSvc)
	evaluator := alerting.NewEvaluator(store, eventStore.Events(), quotaSvc, dispatcher)
	ingestion := events.NewService(eventStore.Events(), quotaSvc, evaluator, live)
	aggregator := aggregate.NewAggregator(eventStore.Events())

	srv, err := api.New(&api.Config{
		Address:            cfg.Server.HTTPAddress,
		JWTSecret:          []byte(jwtSecret),
		RateLimitPerIP:     cfg.API.RateLimitPerIP,
		RateLimitPerTenant: cfg.API.RateLimitPerTenant,
		Verbose:            cfg.Verbose,
	}, store, ingestion, aggregator)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	srv.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))
	if ch, ok := eventStore.(*storage.ClickHouseStorage); ok {
		srv.RegisterHealthChecker(health.NewClickHouseChecker(ch))
	}
	if live != nil {
		srv.RegisterHealthChecker(health.NewNATSChecker(live.IsConnected))
	}

	metricsSrv := metrics.NewServer(cfg.Server.MetricsAddress)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting warden-server %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return metricsSrv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
