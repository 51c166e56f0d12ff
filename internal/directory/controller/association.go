package controller

import (
	"context"
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

// AssociationResult reports what Associate did.
type AssociationResult int

const (
	Associated AssociationResult = iota + 1
	AlreadyAssociated
)

func (r AssociationResult) String() string {
	switch r {
	case Associated:
		return "associated"
	case AlreadyAssociated:
		return "already_associated"
	default:
		return "unknown"
	}
}

// Message is the user-facing outcome text.
func (r AssociationResult) Message() string {
	if r == AlreadyAssociated {
		return "This equipment is already associated with the selected company."
	}
	return "Equipment successfully added to the company."
}

type associationPayload struct {
	CompanyID   uuid.UUID `json:"company_id"`
	EquipmentID uuid.UUID `json:"equipment_id"`
}

// AssociationService is the only writer of the company/equipment link.
type AssociationService struct {
	service
}

func NewAssociationService(repo Repository, producer EventProducer, validator *validation.Validator, clock models.Clock, logger *zap.Logger) *AssociationService {
	return &AssociationService{newService(repo, producer, validator, clock, logger, "association_service")}
}

// Associate links equipment to a company. Linking an already linked pair
// is a no-op reported as AlreadyAssociated. Any authenticated client may
// link any pair.
func (s *AssociationService) Associate(ctx context.Context, actor models.Identity, equipmentID, companyID uuid.UUID) (AssociationResult, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return 0, err
	}

	var result AssociationResult
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if _, err := tx.GetEquipment(ctx, equipmentID); err != nil {
			return fmt.Errorf("equipment %s: %w", equipmentID, err)
		}
		if _, err := tx.GetCompany(ctx, companyID); err != nil {
			return fmt.Errorf("company %s: %w", companyID, err)
		}

		exists, err := tx.CompanyEquipmentExists(ctx, companyID, equipmentID)
		if err != nil {
			return err
		}
		if exists {
			result = AlreadyAssociated
			return nil
		}

		link := models.NewCompanyEquipment(companyID, equipmentID, s.clock.Now())
		if err := s.validator.Struct(link); err != nil {
			return err
		}
		if err := tx.CreateCompanyEquipment(ctx, link); err != nil {
			return err
		}
		result = Associated
		return nil
	})
	if err != nil {
		return 0, wrap(err, "associate equipment")
	}

	if result == Associated {
		s.logger.Info("equipment associated",
			zap.String("equipment_id", equipmentID.String()),
			zap.String("company_id", companyID.String()),
		)
		s.producer.Produce(events.EquipmentAssociated, equipmentID, associationPayload{companyID, equipmentID})
	}
	return result, nil
}

// Disassociate removes the link between the pair. The actor must own the
// equipment or the company, or be a superuser.
func (s *AssociationService) Disassociate(ctx context.Context, actor models.Identity, equipmentID, companyID uuid.UUID) error {
	client, err := s.actorClient(ctx, actor)
	if err != nil {
		return err
	}
	equipment, err := s.repo.GetEquipment(ctx, equipmentID)
	if err != nil {
		return wrap(err, "get equipment")
	}
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return wrap(err, "get company")
	}
	if !actor.Superuser && !client.Owns(equipment.ClientID) && !client.Owns(company.ClientID) {
		return fmt.Errorf("%w: you do not own this equipment or company", e.ErrPermissionDenied)
	}

	if err := s.repo.DeleteCompanyEquipment(ctx, companyID, equipmentID); err != nil {
		return wrap(err, "disassociate equipment")
	}
	s.producer.Produce(events.EquipmentDisassociated, equipmentID, associationPayload{companyID, equipmentID})
	return nil
}

// CompaniesForEquipment lists the companies the equipment is linked to.
func (s *AssociationService) CompaniesForEquipment(ctx context.Context, actor models.Identity, equipmentID uuid.UUID) ([]models.Company, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetEquipment(ctx, equipmentID); err != nil {
		return nil, wrap(err, "get equipment")
	}
	companies, err := s.repo.CompaniesForEquipment(ctx, equipmentID)
	if err != nil {
		return nil, wrap(err, "list companies for equipment")
	}
	return companies, nil
}

// EquipmentForCompany lists the equipment linked to the company.
func (s *AssociationService) EquipmentForCompany(ctx context.Context, actor models.Identity, companyID uuid.UUID) ([]models.Equipment, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, wrap(err, "get company")
	}
	equipment, err := s.repo.EquipmentForCompany(ctx, companyID)
	if err != nil {
		return nil, wrap(err, "list equipment for company")
	}
	return equipment, nil
}
