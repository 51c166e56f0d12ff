package controller

import (
	"context"

	"github.com/gartstein/directory/internal/directory/db"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/policy"
	"github.com/gartstein/directory/internal/directory/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyService manages companies and the addresses created with them.
type CompanyService struct {
	service
}

func NewCompanyService(repo Repository, producer EventProducer, validator *validation.Validator, clock models.Clock, logger *zap.Logger) *CompanyService {
	return &CompanyService{newService(repo, producer, validator, clock, logger, "company_service")}
}

// CreateCompany stores a company owned by the actor. When address is given
// it is created in the same transaction and linked to the company.
func (s *CompanyService) CreateCompany(ctx context.Context, actor models.Identity, company *models.Company, address *models.Address) (*models.Company, error) {
	client, err := s.actorClient(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if address != nil {
		address.Init(now)
		if err := s.validator.Struct(address); err != nil {
			return nil, err
		}
		company.AddressID = &address.ID
	}
	company.ClientID = &client.ID
	company.Init(now)
	if err := s.validator.Struct(company); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if address != nil {
			if err := tx.CreateAddress(ctx, address); err != nil {
				return err
			}
		}
		return tx.CreateCompany(ctx, company)
	})
	if err != nil {
		return nil, wrap(err, "create company")
	}

	created, err := s.repo.GetCompany(ctx, company.ID)
	if err != nil {
		return nil, wrap(err, "load created company")
	}
	s.logger.Info("company created",
		zap.String("company_id", created.ID.String()),
		zap.Uint("account_id", actor.AccountID),
	)
	s.producer.Produce(events.CompanyCreated, created.ID, created)
	return created, nil
}

// UpdateCompany applies the set fields of update after the ownership check
// and re-validates the result.
func (s *CompanyService) UpdateCompany(ctx context.Context, actor models.Identity, id uuid.UUID, update *models.CompanyUpdate) (*models.Company, error) {
	client, err := s.actorClient(ctx, actor)
	if err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, wrap(err, "get company")
	}
	if err := policy.CanModifyCompany(actor, client, company); err != nil {
		return nil, err
	}

	update.Apply(company)
	company.Touch(s.clock.Now())
	if err := s.validator.Struct(company); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, wrap(err, "update company")
	}

	updated, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get company for event",
			zap.Error(err),
			zap.String("company_id", id.String()),
		)
		return nil, err
	}
	s.producer.Produce(events.CompanyUpdated, updated.ID, updated)
	return updated, nil
}

// DeleteCompany removes a company the actor owns, with its equipment links.
func (s *CompanyService) DeleteCompany(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	client, err := s.actorClient(ctx, actor)
	if err != nil {
		return err
	}
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return wrap(err, "get company for deletion")
	}
	if err := policy.CanModifyCompany(actor, client, company); err != nil {
		return err
	}

	if err := s.repo.DeleteCompany(ctx, id); err != nil {
		return wrap(err, "delete company")
	}
	s.logger.Info("company deleted", zap.String("company_id", id.String()))
	s.producer.Produce(events.CompanyDeleted, id, company)
	return nil
}
