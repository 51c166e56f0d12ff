package db

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var equipmentPreload = []string{"Category", "Client.Account"}

const equipmentOrder = "title, size"

func (r *Repository) CreateEquipment(ctx context.Context, equipment *models.Equipment) error {
	return create(ctx, r.db, equipment)
}

func (r *Repository) GetEquipment(ctx context.Context, id uuid.UUID) (*models.Equipment, error) {
	return first[models.Equipment](ctx, r.db, equipmentPreload, "id = ?", id)
}

func (r *Repository) UpdateEquipment(ctx context.Context, equipment *models.Equipment) error {
	return update[models.Equipment](ctx, r.db, equipment.ID, map[string]interface{}{
		"title":       equipment.Title,
		"size":        equipment.Size,
		"category_id": equipment.CategoryID,
		"modified":    equipment.Modified,
	})
}

// DeleteEquipment removes the equipment with its reviews and company links.
func (r *Repository) DeleteEquipment(ctx context.Context, id uuid.UUID) error {
	return r.tx(ctx, func(tx *gorm.DB) error {
		if err := deleteEquipmentDependents(tx, []uuid.UUID{id}); err != nil {
			return err
		}
		return remove[models.Equipment](tx, id)
	})
}

func (r *Repository) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	return find[models.Equipment](ctx, r.db, equipmentPreload, equipmentOrder, "")
}

func (r *Repository) EquipmentByClient(ctx context.Context, clientID uuid.UUID) ([]models.Equipment, error) {
	return find[models.Equipment](ctx, r.db, equipmentPreload, equipmentOrder, "client_id = ?", clientID)
}

func (r *Repository) CountEquipment(ctx context.Context) (int64, error) {
	return count[models.Equipment](ctx, r.db)
}

func deleteEquipmentDependents(tx *gorm.DB, ids []uuid.UUID) error {
	if err := tx.Where("equipment_id IN ?", ids).Delete(&models.Review{}).Error; err != nil {
		return translate(err)
	}
	return translate(tx.Where("equipment_id IN ?", ids).Delete(&models.CompanyEquipment{}).Error)
}

func deleteEquipment(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := deleteEquipmentDependents(tx, ids); err != nil {
		return err
	}
	return translate(tx.Where("id IN ?", ids).Delete(&models.Equipment{}).Error)
}
