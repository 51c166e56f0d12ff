package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/directory/internal/directory/config"
	"github.com/gartstein/directory/internal/directory/controller"
	"github.com/gartstein/directory/internal/directory/db"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	debug      bool
}

// eventProducer is what the services publish through. Close writes any
// queued events before returning.
type eventProducer interface {
	controller.EventProducer
	Close()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "directory",
		Short:        "Business directory of companies, equipment and reviews",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to the YAML configuration")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "use the development logger")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newCreateSuperuserCommand(opts),
		newTokenCommand(opts),
		newEventsCommand(opts),
	)
	return root
}

// initLogger initializes a Zap production logger, or a development one
// with --debug.
func initLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func syncLogger(logger *zap.Logger) {
	_ = logger.Sync()
}

// setup loads the configuration and builds the logger every command needs.
func setup(opts *options) (*config.Config, *zap.Logger, error) {
	logger, err := initLogger(opts.debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		syncLogger(logger)
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger, nil
}

// initDatabase initializes the database configuration.
func initDatabase(cfg *config.Config) *db.Config {
	return &db.Config{
		Driver:       cfg.DBDriver,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		User:         cfg.DBUser,
		Password:     cfg.DBPassword,
		DBName:       cfg.DBName,
		SSLMode:      cfg.DBSSLMode,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}
}

// connectDatabase opens the repository, retrying while the database comes up.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second

	var repo *db.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = db.NewRepository(initDatabase(cfg))
		return err
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("retry_in", next))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return repo, nil
}

// initProducer publishes to Kafka when brokers are configured and discards
// events otherwise.
func initProducer(cfg *config.Config, logger *zap.Logger) (eventProducer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("no Kafka brokers configured, domain events are discarded")
		return events.NopProducer{}, nil
	}
	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kafka producer: %w", err)
	}
	return producer, nil
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
