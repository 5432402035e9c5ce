// Edge Mining Core runs the adapter registry behind the HTTP API.
//
// It loads configuration, opens and migrates the SQLite store, registers
// the built-in adapter factories and serves the REST and WebSocket API
// until interrupted.
//
// Usage:
//
//	edgemining                     run the server
//	edgemining token -role admin   print an API token signed with the configured secret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/api"
	"github.com/nerrad567/edge-mining-core/internal/audit"
	"github.com/nerrad567/edge-mining-core/internal/auth"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/config"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/database"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/logging"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/metrics"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/edge-mining-core/internal/integrations"
	"github.com/nerrad567/edge-mining-core/internal/store"
	"github.com/nerrad567/edge-mining-core/migrations"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "EDGEMINING_CONFIG"

	// registryShutdownTimeout bounds how long cached adapters get to close.
	registryShutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := dispatch(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// dispatch picks the subcommand. No arguments runs the server.
func dispatch(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return run(ctx)
	}
	switch args[0] {
	case "serve":
		return run(ctx)
	case "token":
		return runToken(args[1:], out)
	case "version":
		fmt.Fprintf(out, "edgemining %s (commit %s, built %s)\n", version, commit, date)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// run is the server lifecycle, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Edge Mining Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"node", cfg.Node.ID,
		"level", cfg.Logging.Level,
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	stores := store.New(db.DB)
	factories := adapter.NewFactoryTable()
	integrations.Register(factories)

	collector := metrics.New()
	registry := adapter.NewRegistry(stores.Repositories(), factories, adapter.Options{
		FailureTTL:       cfg.GetFailureTTL(),
		FailureCacheSize: cfg.Registry.FailureCacheSize,
	})
	registry.SetLogger(log.Component("registry"))
	registry.SetMetrics(collector)
	collector.RegisterCacheSize("adapters", func() int { return registry.Stats().Adapters })
	collector.RegisterCacheSize("services", func() int { return registry.Stats().Services })
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), registryShutdownTimeout)
		defer cancel()
		if shutdownErr := registry.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error("error releasing adapters", "error", shutdownErr)
		}
	}()
	log.Info("adapter registry initialised", "factories", factories.Len())

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(ctx, cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Metrics:   cfg.Metrics,
		Logger:    log.Component("api"),
		Registry:  registry,
		Stores:    stores,
		DB:        db.DB,
		Factories: factories,
		Collector: collector,
		MQTT:      mqttClient,
		Audit:     audit.NewStore(db.DB),
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient); err != nil {
		log.Warn("startup health check failed", "error", err)
	} else {
		log.Info("Edge Mining Core started")
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// connectMQTT opens the core event connection and logs its state changes.
func connectMQTT(ctx context.Context, cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttLog := log.Component("mqtt")
	client.SetLogger(mqttLog)
	client.SetOnConnect(func() {
		mqttLog.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		mqttLog.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", mqtt.BrokerURL(cfg),
		"client_id", client.ClientID(),
	)
	return client, nil
}

// healthCheck verifies the database and, when enabled, the broker.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if err := db.HealthCheck(ctx); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: %w", err))
		}
	}
	return errors.Join(errs...)
}

// runToken prints a signed API token. The secret comes from the same
// configuration the server loads.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("subject", "admin", "token subject")
	role := fs.String("role", string(auth.RoleAdmin), "viewer, operator or admin")
	ttl := fs.Duration("ttl", 0, "token lifetime (0 uses security.jwt.access_token_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := auth.Role(*role)
	if !r.IsValid() {
		return fmt.Errorf("%w: %q", auth.ErrInvalidRole, *role)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	lifetime := *ttl
	if lifetime == 0 {
		lifetime = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	}

	token, err := auth.GenerateToken(*subject, r, cfg.Security.JWT.Secret, lifetime)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}

// getConfigPath returns the configuration file path.
// Checks EDGEMINING_CONFIG environment variable first, then uses default.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}
