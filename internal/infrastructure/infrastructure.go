// Package infrastructure assembles the process-wide systems that domain
// code depends on: lifecycle coordination, logging, the document-store
// connection and the object storage client.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JaimeStill/form-intake/internal/collections"
	"github.com/JaimeStill/form-intake/internal/config"
	"github.com/JaimeStill/form-intake/internal/database"
	"github.com/JaimeStill/form-intake/internal/database/firestore"
	"github.com/JaimeStill/form-intake/internal/database/mongodb"
	"github.com/JaimeStill/form-intake/internal/database/postgres"
	"github.com/JaimeStill/form-intake/internal/objectstore"
	"github.com/JaimeStill/form-intake/pkg/lifecycle"
	"github.com/JaimeStill/form-intake/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// Infrastructure holds the core systems required by domain modules.
type Infrastructure struct {
	Lifecycle   *lifecycle.Coordinator
	Logger      *slog.Logger
	Database    *database.Manager
	Storage     *objectstore.Client
	Collections *collections.Accessor

	cfg *config.Config

	mu      sync.Mutex
	waitFor []<-chan struct{}
}

type options struct {
	logger    *slog.Logger
	drivers   map[string]database.Driver
	dbOpts    []database.Option
	storeOpts []objectstore.Option
}

// Option customizes infrastructure construction.
type Option func(*options)

// WithLogger replaces the logger built from the logging configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDriver registers d under its name, replacing a built-in driver.
func WithDriver(d database.Driver) Option {
	return func(o *options) {
		o.drivers[d.Name()] = d
	}
}

// WithDatabaseOptions passes opts to the database manager.
func WithDatabaseOptions(opts ...database.Option) Option {
	return func(o *options) {
		o.dbOpts = append(o.dbOpts, opts...)
	}
}

// WithStorageOptions passes opts to the object storage client.
func WithStorageOptions(opts ...objectstore.Option) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not connect them; call Start separately.
func New(cfg *config.Config, opts ...Option) (*Infrastructure, error) {
	o := &options{
		drivers: map[string]database.Driver{
			database.DriverMongoDB:   mongodb.New(),
			database.DriverFirestore: firestore.New(),
			database.DriverPostgres:  postgres.New(),
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.New(&cfg.Logging)
	}

	driver, ok := o.drivers[cfg.Database.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	db := database.New(driver, logger, o.dbOpts...)

	return &Infrastructure{
		Lifecycle:   lifecycle.New(),
		Logger:      logger,
		Database:    db,
		Storage:     objectstore.New(logger, o.storeOpts...),
		Collections: collections.New(db),
		cfg:         cfg,
	}, nil
}

// ReleaseAfter holds the release of the database and object storage
// until done is closed. Consumers that still use them while draining,
// such as the HTTP server, register here.
func (i *Infrastructure) ReleaseAfter(done <-chan struct{}) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.waitFor = append(i.waitFor, done)
}

// Start connects the database and creates the object storage client
// concurrently, and registers their release with the lifecycle
// coordinator. Release is registered before connecting so that Shutdown
// cleans up after a partial start.
func (i *Infrastructure) Start(ctx context.Context) error {
	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()

		i.mu.Lock()
		waitFor := i.waitFor
		i.mu.Unlock()
		for _, done := range waitFor {
			<-done
		}

		closeCtx, cancel := context.WithTimeout(context.Background(), i.cfg.Database.ConnTimeoutDuration())
		defer cancel()

		i.Database.Disconnect(closeCtx)
		if err := i.Storage.Close(); err != nil {
			i.Logger.Error("object storage close failed", "error", err)
		}
		i.Logger.Info("infrastructure released")
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := i.Database.Connect(gctx, &i.cfg.Database); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := i.Storage.CreateClient(gctx, &i.cfg.Storage); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Ready reports whether startup completed and both external systems are
// usable.
func (i *Infrastructure) Ready() bool {
	return i.Lifecycle.Ready() &&
		i.Database.State() == database.Connected &&
		i.Storage.Available()
}
