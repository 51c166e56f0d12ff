package db

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var clientPreload = []string{"Account"}

func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	return create(ctx, r.db, account)
}

func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return first[models.Account](ctx, r.db, nil, "username = ?", username)
}

func (r *Repository) AccountExistsByUsername(ctx context.Context, username string) (bool, error) {
	var n int64
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("username = ?", username).
		Limit(1).
		Count(&n)
	return n > 0, result.Error
}

func (r *Repository) CreateClient(ctx context.Context, client *models.Client) error {
	return create(ctx, r.db, client)
}

func (r *Repository) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	return first[models.Client](ctx, r.db, clientPreload, "id = ?", id)
}

// GetClientByAccount looks a client up by its numeric account reference.
func (r *Repository) GetClientByAccount(ctx context.Context, accountID uint) (*models.Client, error) {
	return first[models.Client](ctx, r.db, clientPreload, "account_id = ?", accountID)
}

// DeleteClient removes a client together with its reviews, its equipment
// (and everything hanging off that equipment) and its companies.
func (r *Repository) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return r.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return translate(err)
		}

		var equipmentIDs []uuid.UUID
		if err := tx.Model(&models.Equipment{}).Where("client_id = ?", id).Pluck("id", &equipmentIDs).Error; err != nil {
			return translate(err)
		}
		if err := deleteEquipment(tx, equipmentIDs); err != nil {
			return err
		}

		var companyIDs []uuid.UUID
		if err := tx.Model(&models.Company{}).Where("client_id = ?", id).Pluck("id", &companyIDs).Error; err != nil {
			return translate(err)
		}
		if err := deleteCompanies(tx, companyIDs); err != nil {
			return err
		}

		return remove[models.Client](tx, id)
	})
}
