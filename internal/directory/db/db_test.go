package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

var now = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

// SetupTestDB initializes a private in-memory SQLite database for testing.
func SetupTestDB(t *testing.T) *Repository {
	repo, err := NewRepository(&Config{
		Driver:       DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     logger.Silent,
	})
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newClient(t *testing.T, repo *Repository, username string) *models.Client {
	ctx := context.Background()
	account := &models.Account{Username: username, FirstName: "Test", LastName: "User", Email: username + "@example.com"}
	require.NoError(t, repo.CreateAccount(ctx, account))
	client := &models.Client{AccountID: account.ID}
	client.Init(now)
	require.NoError(t, repo.CreateClient(ctx, client))
	return client
}

func newCompany(t *testing.T, repo *Repository, title string, owner *models.Client) *models.Company {
	company := &models.Company{Title: title, Phone: "555-123-4567"}
	if owner != nil {
		company.ClientID = &owner.ID
	}
	company.Init(now)
	require.NoError(t, repo.CreateCompany(context.Background(), company))
	return company
}

func newEquipment(t *testing.T, repo *Repository, title string, category *models.Category, owner *models.Client) *models.Equipment {
	equipment := &models.Equipment{Title: title, Size: utils.Ptr(3)}
	if category != nil {
		equipment.CategoryID = &category.ID
	}
	if owner != nil {
		equipment.ClientID = &owner.ID
	}
	equipment.Init(now)
	require.NoError(t, repo.CreateEquipment(context.Background(), equipment))
	return equipment
}

func newReview(t *testing.T, repo *Repository, author *models.Client, equipment *models.Equipment) *models.Review {
	review := &models.Review{Text: "Solid", Rating: 4, ClientID: author.ID, EquipmentID: equipment.ID}
	review.Init(now)
	require.NoError(t, repo.CreateReview(context.Background(), review))
	return review
}

func newCategory(t *testing.T, repo *Repository, title string) *models.Category {
	category := &models.Category{Title: title}
	category.Init(now)
	require.NoError(t, repo.CreateCategory(context.Background(), category))
	return category
}

// TestCreateCompany tests the creation of a company record with its address.
func TestCreateCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	address := &models.Address{StreetName: "Main St", City: "Springfield", State: "IL", HouseNumber: 1}
	address.Init(now)
	require.NoError(t, repo.CreateAddress(ctx, address))

	owner := newClient(t, repo, "owner")
	company := &models.Company{Title: "Acme", Phone: "+15551234567", AddressID: &address.ID, ClientID: &owner.ID}
	company.Init(now)
	require.NoError(t, repo.CreateCompany(ctx, company), "CreateCompany should succeed")

	retrieved, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err, "GetCompany should retrieve the created company")
	assert.Equal(t, "Acme", retrieved.Title)
	require.NotNil(t, retrieved.Address, "address should be preloaded")
	assert.Equal(t, "Main St", retrieved.Address.StreetName)
	assert.Equal(t, "owner", retrieved.Client.Username(), "owner account should be preloaded")
	assert.Equal(t, "Acme: +15551234567, Main St", retrieved.String())
}

// TestGetCompanyNotFound verifies error handling when the company does not exist.
func TestGetCompanyNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	_, err := repo.GetCompany(context.Background(), uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound, "GetCompany should return ErrNotFound for non-existent company")
}

// TestUpdateCompany checks that the stored columns change.
func TestUpdateCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := newCompany(t, repo, "Old Name", nil)
	company.Title = "New Name"
	company.Touch(now.Add(time.Minute))
	require.NoError(t, repo.UpdateCompany(ctx, company))

	updated, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Title, "Company title should be updated")
	assert.True(t, updated.Modified.After(updated.Created))
}

// TestUpdateCompanyNotFound tests updating a non-existing company.
func TestUpdateCompanyNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	company := &models.Company{Title: "Ghost", Phone: "5551234567"}
	company.Init(now)
	err := repo.UpdateCompany(context.Background(), company)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

// TestDeleteCompanyNotFound checks behavior when trying to delete a non-existent company.
func TestDeleteCompanyNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	err := repo.DeleteCompany(context.Background(), uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestDeleteCompanyRemovesLinks(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := newCompany(t, repo, "Acme", nil)
	equipment := newEquipment(t, repo, "Drill", nil, nil)
	require.NoError(t, repo.CreateCompanyEquipment(ctx, models.NewCompanyEquipment(company.ID, equipment.ID, now)))

	require.NoError(t, repo.DeleteCompany(ctx, company.ID))

	n, err := repo.CountCompanyEquipment(ctx, company.ID, equipment.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "links should go with the company")

	_, err = repo.GetEquipment(ctx, equipment.ID)
	assert.NoError(t, err, "equipment should survive")
}

func TestCompanyEquipmentUnique(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := newCompany(t, repo, "Acme", nil)
	equipment := newEquipment(t, repo, "Drill", nil, nil)

	require.NoError(t, repo.CreateCompanyEquipment(ctx, models.NewCompanyEquipment(company.ID, equipment.ID, now)))
	err := repo.CreateCompanyEquipment(ctx, models.NewCompanyEquipment(company.ID, equipment.ID, now))
	assert.ErrorIs(t, err, e.ErrConflict, "second link for the same pair should conflict")

	exists, err := repo.CompanyEquipmentExists(ctx, company.ID, equipment.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := repo.CountCompanyEquipment(ctx, company.ID, equipment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCompanyEquipmentUnknownSide(t *testing.T) {
	repo := SetupTestDB(t)

	company := newCompany(t, repo, "Acme", nil)
	err := repo.CreateCompanyEquipment(context.Background(), models.NewCompanyEquipment(company.ID, uuid.New(), now))
	assert.ErrorIs(t, err, e.ErrInvalidInput, "foreign key violation should be reported as invalid input")
}

func TestDerivedAssociationQueries(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	beta := newCompany(t, repo, "Beta", nil)
	acme := newCompany(t, repo, "Acme", nil)
	newCompany(t, repo, "Unlinked", nil)
	drill := newEquipment(t, repo, "Drill", nil, nil)
	saw := newEquipment(t, repo, "Saw", nil, nil)

	for _, c := range []*models.Company{beta, acme} {
		require.NoError(t, repo.CreateCompanyEquipment(ctx, models.NewCompanyEquipment(c.ID, drill.ID, now)))
	}
	require.NoError(t, repo.CreateCompanyEquipment(ctx, models.NewCompanyEquipment(acme.ID, saw.ID, now)))

	companies, err := repo.CompaniesForEquipment(ctx, drill.ID)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "Acme", companies[0].Title, "companies should be ordered by title")
	assert.Equal(t, "Beta", companies[1].Title)

	equipment, err := repo.EquipmentForCompany(ctx, acme.ID)
	require.NoError(t, err)
	require.Len(t, equipment, 2)
	assert.Equal(t, "Drill", equipment[0].Title)
	assert.Equal(t, "Saw", equipment[1].Title)

	require.NoError(t, repo.DeleteCompanyEquipment(ctx, acme.ID, drill.ID))
	assert.ErrorIs(t, repo.DeleteCompanyEquipment(ctx, acme.ID, drill.ID), e.ErrNotFound)
}

func TestDeleteEquipmentCascadesReviews(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	author := newClient(t, repo, "reviewer")
	equipment := newEquipment(t, repo, "Drill", nil, author)
	review := newReview(t, repo, author, equipment)

	require.NoError(t, repo.DeleteEquipment(ctx, equipment.ID))

	_, err := repo.GetReview(ctx, review.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "review should be deleted with its equipment")
	_, err = repo.GetClient(ctx, author.ID)
	assert.NoError(t, err, "author should survive")
}

func TestDeleteCategoryCascades(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	author := newClient(t, repo, "reviewer")
	tools := newCategory(t, repo, "Tools")
	drill := newEquipment(t, repo, "Drill", tools, nil)
	loose := newEquipment(t, repo, "Loose", nil, nil)
	review := newReview(t, repo, author, drill)

	require.NoError(t, repo.DeleteCategory(ctx, tools.ID))

	_, err := repo.GetEquipment(ctx, drill.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = repo.GetReview(ctx, review.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = repo.GetEquipment(ctx, loose.ID)
	assert.NoError(t, err, "uncategorized equipment is untouched")

	assert.ErrorIs(t, repo.DeleteCategory(ctx, tools.ID), e.ErrNotFound)
}

func TestDeleteAddressClearsCompanyReference(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	address := &models.Address{StreetName: "Main St", City: "Springfield", State: "IL", HouseNumber: 12}
	address.Init(now)
	require.NoError(t, repo.CreateAddress(ctx, address))
	company := &models.Company{Title: "Acme", Phone: "5551234567", AddressID: &address.ID}
	company.Init(now)
	require.NoError(t, repo.CreateCompany(ctx, company))

	require.NoError(t, repo.DeleteAddress(ctx, address.ID))

	got, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err, "company should survive its address")
	assert.Nil(t, got.AddressID)
	assert.Nil(t, got.Address)
}

func TestDeleteClientCascades(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	owner := newClient(t, repo, "owner")
	other := newClient(t, repo, "other")
	company := newCompany(t, repo, "Acme", owner)
	owned := newEquipment(t, repo, "Drill", nil, owner)
	foreign := newEquipment(t, repo, "Saw", nil, other)
	review := newReview(t, repo, other, owned)
	ownReview := newReview(t, repo, owner, foreign)
	require.NoError(t, repo.CreateCompanyEquipment(ctx, models.NewCompanyEquipment(company.ID, foreign.ID, now)))

	require.NoError(t, repo.DeleteClient(ctx, owner.ID))

	_, err := repo.GetCompany(ctx, company.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = repo.GetEquipment(ctx, owned.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = repo.GetReview(ctx, review.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "reviews on deleted equipment go too")
	_, err = repo.GetReview(ctx, ownReview.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = repo.GetEquipment(ctx, foreign.ID)
	assert.NoError(t, err)
}

func TestListOrdering(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	newCategory(t, repo, "Tools")
	newCategory(t, repo, "Appliances")
	newEquipment(t, repo, "Saw", nil, nil)
	newEquipment(t, repo, "Drill", nil, nil)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Appliances", categories[0].Title)

	equipment, err := repo.ListEquipment(ctx)
	require.NoError(t, err)
	require.Len(t, equipment, 2)
	assert.Equal(t, "Drill", equipment[0].Title)
	assert.Equal(t, "None: Drill, 3", equipment[0].String())
}

func TestCounts(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	author := newClient(t, repo, "reviewer")
	newCompany(t, repo, "Acme", nil)
	equipment := newEquipment(t, repo, "Drill", nil, nil)
	newReview(t, repo, author, equipment)

	companies, err := repo.CountCompanies(ctx)
	require.NoError(t, err)
	equipmentCount, err := repo.CountEquipment(ctx)
	require.NoError(t, err)
	reviews, err := repo.CountReviews(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), companies)
	assert.Equal(t, int64(1), equipmentCount)
	assert.Equal(t, int64(1), reviews)
}

func TestAccountLookup(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	client := newClient(t, repo, "testuser")

	exists, err := repo.AccountExistsByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.True(t, exists)

	account, err := repo.GetAccountByUsername(ctx, "testuser")
	require.NoError(t, err)

	byAccount, err := repo.GetClientByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, client.ID, byAccount.ID)
	assert.Equal(t, "testuser Test User", byAccount.String())

	dup := &models.Account{Username: "testuser", FirstName: "A", LastName: "B", Email: "b@example.com"}
	assert.ErrorIs(t, repo.CreateAccount(ctx, dup), e.ErrConflict)
}

// TestWithTransaction ensures commits and rollbacks work correctly.
func TestWithTransaction(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	var committed *models.Company
	err := repo.WithTransaction(ctx, func(txRepo *Repository) error {
		committed = &models.Company{Title: "Transactional", Phone: "5551234567"}
		committed.Init(now)
		return txRepo.CreateCompany(ctx, committed)
	})
	require.NoError(t, err, "WithTransaction should execute successfully")
	_, err = repo.GetCompany(ctx, committed.ID)
	assert.NoError(t, err, "Company should exist after transaction")

	boom := errors.New("boom")
	var rolledBack *models.Company
	err = repo.WithTransaction(ctx, func(txRepo *Repository) error {
		rolledBack = &models.Company{Title: "Rolled back", Phone: "5551234567"}
		rolledBack.Init(now)
		if err := txRepo.CreateCompany(ctx, rolledBack); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = repo.GetCompany(ctx, rolledBack.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "Company should not exist after rollback")
}

func TestRollbackAndMigrate(t *testing.T) {
	repo := SetupTestDB(t)

	require.NoError(t, repo.Rollback())
	assert.False(t, repo.db.Migrator().HasTable(&models.Company{}))

	require.NoError(t, Migrate(repo.db))
	assert.True(t, repo.db.Migrator().HasTable(&models.Company{}))
}
