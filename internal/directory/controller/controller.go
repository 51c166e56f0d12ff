// Package controller implements the core business logic (service layer)
// of the directory: it resolves the acting client, validates input,
// applies the authorization policy, orchestrates repository operations
// and publishes domain events.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/directory/internal/directory/db"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/policy"
	"github.com/gartstein/directory/internal/directory/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, entityID uuid.UUID, payload interface{})
}

// Repository defines the storage interface for directory entities.
type Repository interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	AccountExistsByUsername(ctx context.Context, username string) (bool, error)
	GetClientByAccount(ctx context.Context, accountID uint) (*models.Client, error)

	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	UpdateCompany(ctx context.Context, company *models.Company) error
	DeleteCompany(ctx context.Context, id uuid.UUID) error
	ListCompanies(ctx context.Context) ([]models.Company, error)
	CompaniesByClient(ctx context.Context, clientID uuid.UUID) ([]models.Company, error)
	CountCompanies(ctx context.Context) (int64, error)

	CreateEquipment(ctx context.Context, equipment *models.Equipment) error
	GetEquipment(ctx context.Context, id uuid.UUID) (*models.Equipment, error)
	UpdateEquipment(ctx context.Context, equipment *models.Equipment) error
	DeleteEquipment(ctx context.Context, id uuid.UUID) error
	ListEquipment(ctx context.Context) ([]models.Equipment, error)
	EquipmentByClient(ctx context.Context, clientID uuid.UUID) ([]models.Equipment, error)
	CountEquipment(ctx context.Context) (int64, error)

	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error)
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, id uuid.UUID) error
	ListReviews(ctx context.Context) ([]models.Review, error)
	ReviewsForEquipment(ctx context.Context, equipmentID uuid.UUID) ([]models.Review, error)
	ReviewsByClient(ctx context.Context, clientID uuid.UUID) ([]models.Review, error)
	CountReviews(ctx context.Context) (int64, error)

	CreateAddress(ctx context.Context, address *models.Address) error
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	UpdateAddress(ctx context.Context, address *models.Address) error
	DeleteAddress(ctx context.Context, id uuid.UUID) error
	ListAddresses(ctx context.Context) ([]models.Address, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]models.Category, error)

	DeleteCompanyEquipment(ctx context.Context, companyID, equipmentID uuid.UUID) error
	CompaniesForEquipment(ctx context.Context, equipmentID uuid.UUID) ([]models.Company, error)
	EquipmentForCompany(ctx context.Context, companyID uuid.UUID) ([]models.Equipment, error)

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

// service carries the dependencies every directory service shares.
type service struct {
	repo      Repository
	producer  EventProducer
	validator *validation.Validator
	clock     models.Clock
	logger    *zap.Logger
}

func newService(repo Repository, producer EventProducer, validator *validation.Validator, clock models.Clock, logger *zap.Logger, name string) service {
	return service{
		repo:      repo,
		producer:  producer,
		validator: validator,
		clock:     clock,
		logger:    logger.Named(name),
	}
}

// actorClient resolves the client record behind an authenticated identity.
func (s *service) actorClient(ctx context.Context, actor models.Identity) (*models.Client, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	client, err := s.repo.GetClientByAccount(ctx, actor.AccountID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: no client for account %d", e.ErrUnauthenticated, actor.AccountID)
		}
		return nil, fmt.Errorf("failed to resolve client: %w", err)
	}
	return client, nil
}

// Services bundles the directory services over one repository, producer
// and clock.
type Services struct {
	Accounts     *AccountService
	Companies    *CompanyService
	Equipment    *EquipmentService
	Reviews      *ReviewService
	Catalog      *CatalogService
	Associations *AssociationService
	Queries      *QueryService
}

// NewServices wires every service against the same dependencies.
func NewServices(repo Repository, producer EventProducer, clock models.Clock, logger *zap.Logger) *Services {
	v := validation.New(clock)
	return &Services{
		Accounts:     NewAccountService(repo, producer, v, clock, logger),
		Companies:    NewCompanyService(repo, producer, v, clock, logger),
		Equipment:    NewEquipmentService(repo, producer, v, clock, logger),
		Reviews:      NewReviewService(repo, producer, v, clock, logger),
		Catalog:      NewCatalogService(repo, producer, v, clock, logger),
		Associations: NewAssociationService(repo, producer, v, clock, logger),
		Queries:      NewQueryService(repo, logger),
	}
}

// wrap annotates err unless it is one of the values callers branch on
// directly.
func wrap(err error, action string) error {
	switch {
	case errors.Is(err, e.ErrNotFound),
		errors.Is(err, e.ErrPermissionDenied),
		errors.Is(err, e.ErrUnauthenticated):
		return err
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}
