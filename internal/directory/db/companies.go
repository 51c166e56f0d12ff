package db

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var companyPreload = []string{"Address", "Client.Account"}

const companyOrder = "title, phone"

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	return create(ctx, r.db, company)
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return first[models.Company](ctx, r.db, companyPreload, "id = ?", id)
}

func (r *Repository) UpdateCompany(ctx context.Context, company *models.Company) error {
	return update[models.Company](ctx, r.db, company.ID, map[string]interface{}{
		"title":      company.Title,
		"phone":      company.Phone,
		"address_id": company.AddressID,
		"modified":   company.Modified,
	})
}

// DeleteCompany removes the company and its equipment links.
func (r *Repository) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	return r.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", id).Delete(&models.CompanyEquipment{}).Error; err != nil {
			return translate(err)
		}
		return remove[models.Company](tx, id)
	})
}

func (r *Repository) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return find[models.Company](ctx, r.db, companyPreload, companyOrder, "")
}

func (r *Repository) CompaniesByClient(ctx context.Context, clientID uuid.UUID) ([]models.Company, error) {
	return find[models.Company](ctx, r.db, companyPreload, companyOrder, "client_id = ?", clientID)
}

func (r *Repository) CountCompanies(ctx context.Context) (int64, error) {
	return count[models.Company](ctx, r.db)
}

func deleteCompanies(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("company_id IN ?", ids).Delete(&models.CompanyEquipment{}).Error; err != nil {
		return translate(err)
	}
	return translate(tx.Where("id IN ?", ids).Delete(&models.Company{}).Error)
}
