package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/controller"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/handlers"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and HTTP servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			ctx, stop := signalContext()
			defer stop()

			repo, err := connectDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			producer, err := initProducer(cfg, logger)
			if err != nil {
				return err
			}
			defer producer.Close()

			services := controller.NewServices(repo, producer, models.SystemClock, logger)

			// Only health is served over gRPC today and it is exempt; the
			// interceptor guards whatever gRPC service is registered next.
			authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
			server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.UnaryInterceptor(authInterceptor.Unary()))

			err = server.RegisterHTTPGateway(ctx,
				[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
				cfg.JWTSecret,
				cfg.RateLimit,
				handlers.NewAppHandler(services, cfg.JWTSecret, cfg.TokenTTL, logger),
				handlers.NewResourceHandler[models.Company]("companies", controller.NewCompanyResource(services), logger),
				handlers.NewResourceHandler[models.Equipment]("equipment", controller.NewEquipmentResource(services), logger),
				handlers.NewResourceHandler[models.Review]("reviews", controller.NewReviewResource(services), logger),
			)
			if err != nil {
				return fmt.Errorf("failed to register HTTP gateway: %w", err)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("failed to start servers: %w", err)
				}
			case <-ctx.Done():
				server.Stop()
				<-errCh
				logger.Info("Servers stopped properly")
			}
			return nil
		},
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			repo, err := connectDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			if rollback {
				if err := repo.Rollback(); err != nil {
					return fmt.Errorf("failed to roll back: %w", err)
				}
				logger.Info("rolled back the last migration")
				return nil
			}
			logger.Info("schema is up to date")
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "revert the most recent migration")
	return cmd
}

func newCreateSuperuserCommand(opts *options) *cobra.Command {
	reg := &controller.Registration{}
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			repo, err := connectDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			services := controller.NewServices(repo, events.NopProducer{}, models.SystemClock, logger)
			client, err := services.Accounts.CreateSuperuser(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Superuser %q created (account %d).\n", reg.Username, client.AccountID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&reg.Username, "username", "", "login name")
	flags.StringVar(&reg.Password, "password", "", "password")
	flags.StringVar(&reg.Email, "email", "", "email address")
	flags.StringVar(&reg.FirstName, "first-name", "Admin", "first name")
	flags.StringVar(&reg.LastName, "last-name", "User", "last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newTokenCommand(opts *options) *cobra.Command {
	var username, password string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			repo, err := connectDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			services := controller.NewServices(repo, events.NopProducer{}, models.SystemClock, logger)
			identity, err := services.Accounts.Authenticate(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.TokenTTL
			}
			token, err := auth.GenerateToken(identity, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newEventsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the domain event stream",
	}
	var group string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print domain events as they are published",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			if len(cfg.KafkaBrokers) == 0 {
				return fmt.Errorf("no Kafka brokers configured")
			}
			if group == "" {
				group = cfg.ConsumerGroup
			}

			ctx, stop := signalContext()
			defer stop()

			consumer := events.NewConsumer(cfg.KafkaBrokers, group, cfg.Topic, logger)
			defer consumer.Close()

			out := json.NewEncoder(cmd.OutOrStdout())
			consumer.RegisterHandler(func(_ context.Context, event events.Event) error {
				logger.Debug("event received",
					zap.String("type", string(event.Type)),
					zap.String("entity_id", event.EntityID.String()),
				)
				return out.Encode(event)
			})
			return consumer.Run(ctx)
		},
	}
	tail.Flags().StringVar(&group, "group", "", "consumer group (defaults to CONSUMER_GROUP)")
	cmd.AddCommand(tail)
	return cmd
}
