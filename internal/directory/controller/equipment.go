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

// EquipmentService manages equipment listed by clients.
type EquipmentService struct {
	service
}

func NewEquipmentService(repo Repository, producer EventProducer, validator *validation.Validator, clock models.Clock, logger *zap.Logger) *EquipmentService {
	return &EquipmentService{newService(repo, producer, validator, clock, logger, "equipment_service")}
}

// CreateEquipment stores equipment owned by the actor.
func (s *EquipmentService) CreateEquipment(ctx context.Context, actor models.Identity, equipment *models.Equipment) (*models.Equipment, error) {
	client, err := s.actorClient(ctx, actor)
	if err != nil {
		return nil, err
	}

	equipment.ClientID = &client.ID
	equipment.Init(s.clock.Now())
	if err := s.validator.Struct(equipment); err != nil {
		return nil, err
	}
	if err := s.repo.CreateEquipment(ctx, equipment); err != nil {
		return nil, wrap(err, "create equipment")
	}

	created, err := s.repo.GetEquipment(ctx, equipment.ID)
	if err != nil {
		return nil, wrap(err, "load created equipment")
	}
	s.logger.Info("equipment created",
		zap.String("equipment_id", created.ID.String()),
		zap.Uint("account_id", actor.AccountID),
	)
	s.producer.Produce(events.EquipmentCreated, created.ID, created)
	return created, nil
}

func (s *EquipmentService) UpdateEquipment(ctx context.Context, actor models.Identity, id uuid.UUID, update *models.EquipmentUpdate) (*models.Equipment, error) {
	client, err := s.actorClient(ctx, actor)
	if err != nil {
		return nil, err
	}
	equipment, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return nil, wrap(err, "get equipment")
	}
	if err := policy.CanModifyEquipment(actor, client, equipment); err != nil {
		return nil, err
	}

	update.Apply(equipment)
	equipment.Touch(s.clock.Now())
	if err := s.validator.Struct(equipment); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEquipment(ctx, equipment); err != nil {
		return nil, wrap(err, "update equipment")
	}

	updated, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return nil, wrap(err, "load updated equipment")
	}
	s.producer.Produce(events.EquipmentUpdated, updated.ID, updated)
	return updated, nil
}

// DeleteEquipment removes equipment the actor owns together with its
// reviews and company links. A denied request leaves everything in place.
func (s *EquipmentService) DeleteEquipment(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	client, err := s.actorClient(ctx, actor)
	if err != nil {
		return err
	}
	equipment, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return wrap(err, "get equipment for deletion")
	}
	if err := policy.CanModifyEquipment(actor, client, equipment); err != nil {
		s.logger.Warn("equipment deletion denied",
			zap.String("equipment_id", id.String()),
			zap.Uint("account_id", actor.AccountID),
		)
		return err
	}

	if err := s.repo.DeleteEquipment(ctx, id); err != nil {
		return wrap(err, "delete equipment")
	}
	s.logger.Info("equipment deleted", zap.String("equipment_id", id.String()))
	s.producer.Produce(events.EquipmentDeleted, id, equipment)
	return nil
}
