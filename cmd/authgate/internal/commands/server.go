package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authgate/authgate/internal/access"
	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/logger"
	"github.com/authgate/authgate/internal/server"
	"github.com/authgate/authgate/internal/store"
	postgresstore "github.com/authgate/authgate/internal/store/postgres"
	"github.com/authgate/authgate/internal/telemetry"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"AUTHGATE_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"AUTHGATE_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"AUTHGATE_TLS_KEY"`

	// Token verification configuration
	Issuer      string        `help:"expected JWT issuer" default:"https://authgate.local" env:"AUTHGATE_ISSUER"`
	PublicKey   string        `help:"PEM-encoded ECDSA public key for JWT verification" default:"" env:"AUTHGATE_PUBLIC_KEY"`
	JWKSURL     string        `help:"JWKS endpoint for JWT verification keys" default:"" env:"AUTHGATE_JWKS_URL"`
	KeyCacheTTL time.Duration `help:"JWKS key cache TTL" default:"1h" env:"AUTHGATE_KEY_CACHE_TTL"`

	// Operational modes
	Metrics bool `help:"enable OTLP metrics export" default:"false" env:"AUTHGATE_METRICS"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"AUTHGATE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Audit         AuditFlags         `embed:"" prefix:"audit-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"AUTHGATE_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

// AuditFlags configures the async audit writer.
type AuditFlags struct {
	BufferSize    int           `help:"audit event buffer capacity" default:"1024" env:"AUTHGATE_AUDIT_BUFFER_SIZE"`
	BatchMaxSize  int           `help:"max audit events written per flush" default:"50" env:"AUTHGATE_AUDIT_BATCH_MAX_SIZE"`
	FlushInterval time.Duration `help:"flush interval for audit batching" default:"2s" env:"AUTHGATE_AUDIT_FLUSH_INTERVAL"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	if c.Metrics {
		log.Info().Msg("Metrics export is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "authgate", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create stores and the audit sink based on store type
	var (
		profileStore store.ProfileStore
		itemStore    store.ItemStore
		sink         audit.Sink
	)

	switch c.StoreType {
	case "postgres":
		poolCfg := &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		}
		pool, err := postgresstore.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		profileStore = postgresstore.NewProfileStore(pool)
		itemStore = postgresstore.NewItemStore(pool)

		pgSink := audit.NewPostgresSink(pool, audit.PostgresSinkConfig{
			BufferSize:    c.Audit.BufferSize,
			MaxBatchSize:  c.Audit.BatchMaxSize,
			FlushInterval: c.Audit.FlushInterval,
		})
		defer pgSink.Close()

		sink = audit.NewMultiSink(audit.NewLoggerSink(), pgSink)

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		profileStore = store.NewMemoryProfileStore()
		itemStore = store.NewMemoryItemStore()
		sink = audit.NewLoggerSink()
		log.Info().Msg("Using in-memory stores")
	}

	// Create the token verifier from either a static PEM key or a JWKS URL
	var keys identity.KeySource
	switch {
	case c.PublicKey != "":
		staticKey, err := identity.NewStaticKeyFromPEM(c.PublicKey)
		if err != nil {
			return fmt.Errorf("failed to parse public key: %w", err)
		}
		keys = staticKey
	case c.JWKSURL != "":
		keys = identity.NewJWKSCache(c.JWKSURL, nil).WithTTL(c.KeyCacheTTL)
	default:
		return errors.New("a verification key is required (--public-key or --jwks-url)")
	}

	revocations := identity.NewMemoryRevocationList()
	verifier := identity.NewJWTVerifier(c.Issuer, keys, revocations)
	resolver := identity.NewResolver(verifier, profileStore, sink)
	engine := access.NewEngine(sink)
	profiles := identity.NewProfileService(profileStore, sink)

	srv := server.NewServer(server.Config{
		Resolver: resolver,
		Profiles: profiles,
		Engine:   engine,
		Items:    itemStore,
		Users:    profileStore,
	})

	httpServer := configureHTTPServer(c.Listen, srv.Handler(log))

	if c.Cert != "" && c.Key != "" {
		log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
		return httpServer.ListenAndServeTLS(c.Cert, c.Key)
	}

	log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
	return httpServer.ListenAndServe()
}
