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

// ReviewService manages the reviews clients leave on equipment.
type ReviewService struct {
	service
}

func NewReviewService(repo Repository, producer EventProducer, validator *validation.Validator, clock models.Clock, logger *zap.Logger) *ReviewService {
	return &ReviewService{newService(repo, producer, validator, clock, logger, "review_service")}
}

// CreateReview posts review on the equipment as the actor.
func (s *ReviewService) CreateReview(ctx context.Context, actor models.Identity, equipmentID uuid.UUID, review *models.Review) (*models.Review, error) {
	client, err := s.actorClient(ctx, actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetEquipment(ctx, equipmentID); err != nil {
		return nil, wrap(err, "get reviewed equipment")
	}

	review.ClientID = client.ID
	review.EquipmentID = equipmentID
	review.Init(s.clock.Now())
	if err := s.validator.Struct(review); err != nil {
		return nil, err
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, wrap(err, "create review")
	}

	created, err := s.repo.GetReview(ctx, review.ID)
	if err != nil {
		return nil, wrap(err, "load created review")
	}
	s.producer.Produce(events.ReviewCreated, created.ID, created)
	return created, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, actor models.Identity, id uuid.UUID, update *models.ReviewUpdate) (*models.Review, error) {
	review, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return nil, wrap(err, "get review")
	}
	if err := policy.CanModifyReview(actor, review); err != nil {
		return nil, err
	}

	update.Apply(review)
	review.Touch(s.clock.Now())
	if err := s.validator.Struct(review); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateReview(ctx, review); err != nil {
		return nil, wrap(err, "update review")
	}
	s.producer.Produce(events.ReviewUpdated, review.ID, review)
	return review, nil
}

// DeleteReview removes a review written by the actor.
func (s *ReviewService) DeleteReview(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return nil, wrap(err, "get review for deletion")
	}
	if err := policy.CanModifyReview(actor, review); err != nil {
		return nil, err
	}

	if err := s.repo.DeleteReview(ctx, id); err != nil {
		return nil, wrap(err, "delete review")
	}
	s.logger.Info("review deleted", zap.String("review_id", id.String()))
	s.producer.Produce(events.ReviewDeleted, id, review)
	return review, nil
}
