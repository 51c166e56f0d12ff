package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/directory/internal/directory/db"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt rejects anything longer.
	maxPasswordLength = 72
)

// Registration is the sign-up form.
type Registration struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// AccountService registers clients and checks their credentials.
type AccountService struct {
	service
}

func NewAccountService(repo Repository, producer EventProducer, validator *validation.Validator, clock models.Clock, logger *zap.Logger) *AccountService {
	return &AccountService{newService(repo, producer, validator, clock, logger, "account_service")}
}

// Register creates an account and its client in one transaction.
func (s *AccountService) Register(ctx context.Context, reg *Registration) (*models.Client, error) {
	return s.register(ctx, reg, false)
}

// CreateSuperuser registers an administrator account.
func (s *AccountService) CreateSuperuser(ctx context.Context, reg *Registration) (*models.Client, error) {
	return s.register(ctx, reg, true)
}

func (s *AccountService) register(ctx context.Context, reg *Registration, superuser bool) (*models.Client, error) {
	account := &models.Account{
		Username:    reg.Username,
		FirstName:   reg.FirstName,
		LastName:    reg.LastName,
		Email:       reg.Email,
		IsSuperuser: superuser,
	}
	if err := s.validator.Struct(account); err != nil {
		return nil, err
	}
	if len(reg.Password) < minPasswordLength {
		return nil, e.NewValidationError("password",
			fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}
	if len(reg.Password) > maxPasswordLength {
		return nil, e.NewValidationError("password",
			fmt.Sprintf("This password is too long. It must contain at most %d bytes.", maxPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account.PasswordHash = hash

	client := &models.Client{}
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		exists, err := tx.AccountExistsByUsername(ctx, account.Username)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %w", e.ErrConflict,
				e.NewValidationError("username", "A user with that username already exists."))
		}
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		client.AccountID = account.ID
		client.Account = account
		client.Init(s.clock.Now())
		return tx.CreateClient(ctx, client)
	})
	if err != nil {
		return nil, wrap(err, "register client")
	}

	s.logger.Info("client registered",
		zap.String("client_id", client.ID.String()),
		zap.String("username", account.Username),
		zap.Bool("superuser", superuser),
	)
	s.producer.Produce(events.ClientRegistered, client.ID, map[string]interface{}{
		"account_id": account.ID,
		"username":   account.Username,
	})
	return client, nil
}

// Authenticate checks username and password and returns the identity to
// put in a token.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (models.Identity, error) {
	account, err := s.repo.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return models.Identity{}, fmt.Errorf("%w: invalid username or password", e.ErrUnauthenticated)
		}
		return models.Identity{}, wrap(err, "look up account")
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		s.logger.Warn("failed login", zap.String("username", username))
		return models.Identity{}, fmt.Errorf("%w: invalid username or password", e.ErrUnauthenticated)
	}
	return models.Identity{
		AccountID: account.ID,
		Username:  account.Username,
		Superuser: account.IsSuperuser,
	}, nil
}
