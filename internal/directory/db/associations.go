package db

import (
	"context"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateCompanyEquipment(ctx context.Context, link *models.CompanyEquipment) error {
	return create(ctx, r.db, link)
}

func (r *Repository) CompanyEquipmentExists(ctx context.Context, companyID, equipmentID uuid.UUID) (bool, error) {
	var n int64
	result := r.db.WithContext(ctx).Model(&models.CompanyEquipment{}).
		Where("company_id = ? AND equipment_id = ?", companyID, equipmentID).
		Limit(1).
		Count(&n)
	return n > 0, translate(result.Error)
}

// DeleteCompanyEquipment removes the single link between the pair.
func (r *Repository) DeleteCompanyEquipment(ctx context.Context, companyID, equipmentID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND equipment_id = ?", companyID, equipmentID).
		Delete(&models.CompanyEquipment{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) CountCompanyEquipment(ctx context.Context, companyID, equipmentID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CompanyEquipment{}).
		Where("company_id = ? AND equipment_id = ?", companyID, equipmentID).
		Count(&n).Error
	return n, translate(err)
}

// CompaniesForEquipment lists the companies an item is linked to.
func (r *Repository) CompaniesForEquipment(ctx context.Context, equipmentID uuid.UUID) ([]models.Company, error) {
	sub := r.db.Model(&models.CompanyEquipment{}).Select("company_id").Where("equipment_id = ?", equipmentID)
	return find[models.Company](ctx, r.db, companyPreload, companyOrder, "id IN (?)", sub)
}

// EquipmentForCompany lists the equipment linked to a company.
func (r *Repository) EquipmentForCompany(ctx context.Context, companyID uuid.UUID) ([]models.Equipment, error) {
	sub := r.db.Model(&models.CompanyEquipment{}).Select("equipment_id").Where("company_id = ?", companyID)
	return find[models.Equipment](ctx, r.db, equipmentPreload, equipmentOrder, "id IN (?)", sub)
}
