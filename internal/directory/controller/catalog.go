package controller

import (
	"context"

	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/policy"
	"github.com/gartstein/directory/internal/directory/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService manages categories and standalone addresses. Both are
// administrator data: any client may read them, only superusers change them.
type CatalogService struct {
	service
}

func NewCatalogService(repo Repository, producer EventProducer, validator *validation.Validator, clock models.Clock, logger *zap.Logger) *CatalogService {
	return &CatalogService{newService(repo, producer, validator, clock, logger, "catalog_service")}
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor models.Identity, category *models.Category) (*models.Category, error) {
	if err := policy.CanModifyCatalog(actor); err != nil {
		return nil, err
	}
	category.Init(s.clock.Now())
	if err := s.validator.Struct(category); err != nil {
		return nil, err
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, wrap(err, "create category")
	}
	s.producer.Produce(events.CategoryCreated, category.ID, category)
	return category, nil
}

// DeleteCategory removes the category and, with it, every piece of
// equipment filed under it.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	if err := policy.CanModifyCatalog(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return wrap(err, "delete category")
	}
	s.logger.Info("category deleted", zap.String("category_id", id.String()))
	s.producer.Produce(events.CategoryDeleted, id, nil)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context, actor models.Identity) ([]models.Category, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, wrap(err, "list categories")
	}
	return categories, nil
}

func (s *CatalogService) CreateAddress(ctx context.Context, actor models.Identity, address *models.Address) (*models.Address, error) {
	if err := policy.CanModifyCatalog(actor); err != nil {
		return nil, err
	}
	address.Init(s.clock.Now())
	if err := s.validator.Struct(address); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAddress(ctx, address); err != nil {
		return nil, wrap(err, "create address")
	}
	return address, nil
}

func (s *CatalogService) UpdateAddress(ctx context.Context, actor models.Identity, id uuid.UUID, update *models.AddressUpdate) (*models.Address, error) {
	if err := policy.CanModifyCatalog(actor); err != nil {
		return nil, err
	}
	address, err := s.repo.GetAddress(ctx, id)
	if err != nil {
		return nil, wrap(err, "get address")
	}
	update.Apply(address)
	address.Touch(s.clock.Now())
	if err := s.validator.Struct(address); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAddress(ctx, address); err != nil {
		return nil, wrap(err, "update address")
	}
	return address, nil
}

// DeleteAddress removes the address; companies that used it keep existing
// without an address.
func (s *CatalogService) DeleteAddress(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	if err := policy.CanModifyCatalog(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteAddress(ctx, id); err != nil {
		return wrap(err, "delete address")
	}
	return nil
}

func (s *CatalogService) ListAddresses(ctx context.Context, actor models.Identity) ([]models.Address, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	addresses, err := s.repo.ListAddresses(ctx)
	if err != nil {
		return nil, wrap(err, "list addresses")
	}
	return addresses, nil
}
