package db

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateAddress(ctx context.Context, address *models.Address) error {
	return create(ctx, r.db, address)
}

func (r *Repository) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	return first[models.Address](ctx, r.db, nil, "id = ?", id)
}

func (r *Repository) UpdateAddress(ctx context.Context, address *models.Address) error {
	return update[models.Address](ctx, r.db, address.ID, map[string]interface{}{
		"street_name":  address.StreetName,
		"city":         address.City,
		"state":        address.State,
		"house_number": address.HouseNumber,
		"modified":     address.Modified,
	})
}

// DeleteAddress removes the address; companies referencing it keep existing
// without one.
func (r *Repository) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	return r.tx(ctx, func(tx *gorm.DB) error {
		err := tx.Model(&models.Company{}).Where("address_id = ?", id).Update("address_id", nil).Error
		if err != nil {
			return translate(err)
		}
		return remove[models.Address](tx, id)
	})
}

func (r *Repository) ListAddresses(ctx context.Context) ([]models.Address, error) {
	return find[models.Address](ctx, r.db, nil, "street_name, house_number", "")
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return create(ctx, r.db, category)
}

func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return first[models.Category](ctx, r.db, nil, "id = ?", id)
}

// DeleteCategory removes the category and all equipment filed under it.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.tx(ctx, func(tx *gorm.DB) error {
		var equipmentIDs []uuid.UUID
		if err := tx.Model(&models.Equipment{}).Where("category_id = ?", id).Pluck("id", &equipmentIDs).Error; err != nil {
			return translate(err)
		}
		if err := deleteEquipment(tx, equipmentIDs); err != nil {
			return err
		}
		return remove[models.Category](tx, id)
	})
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	return find[models.Category](ctx, r.db, nil, "title", "")
}
