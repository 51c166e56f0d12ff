package db

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
)

var reviewPreload = []string{"Client.Account", "Equipment"}

const reviewOrder = "text, rating"

func (r *Repository) CreateReview(ctx context.Context, review *models.Review) error {
	return create(ctx, r.db, review)
}

func (r *Repository) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return first[models.Review](ctx, r.db, reviewPreload, "id = ?", id)
}

func (r *Repository) UpdateReview(ctx context.Context, review *models.Review) error {
	return update[models.Review](ctx, r.db, review.ID, map[string]interface{}{
		"text":     review.Text,
		"rating":   review.Rating,
		"modified": review.Modified,
	})
}

func (r *Repository) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return remove[models.Review](r.db.WithContext(ctx), id)
}

func (r *Repository) ListReviews(ctx context.Context) ([]models.Review, error) {
	return find[models.Review](ctx, r.db, reviewPreload, reviewOrder, "")
}

// ReviewsForEquipment returns the reviews on one item with their authors loaded.
func (r *Repository) ReviewsForEquipment(ctx context.Context, equipmentID uuid.UUID) ([]models.Review, error) {
	return find[models.Review](ctx, r.db, reviewPreload, reviewOrder, "equipment_id = ?", equipmentID)
}

func (r *Repository) ReviewsByClient(ctx context.Context, clientID uuid.UUID) ([]models.Review, error) {
	return find[models.Review](ctx, r.db, reviewPreload, reviewOrder, "client_id = ?", clientID)
}

func (r *Repository) CountReviews(ctx context.Context) (int64, error) {
	return count[models.Review](ctx, r.db)
}
