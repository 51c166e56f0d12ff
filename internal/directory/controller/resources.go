package controller

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
)

// CompanyResource exposes companies to the REST API.
type CompanyResource struct {
	services *Services
}

func NewCompanyResource(services *Services) *CompanyResource {
	return &CompanyResource{services: services}
}

func (r *CompanyResource) List(ctx context.Context, actor models.Identity) ([]models.Company, error) {
	return r.services.Queries.ListCompanies(ctx, actor)
}

func (r *CompanyResource) Retrieve(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Company, error) {
	return r.services.Queries.GetCompany(ctx, actor, id)
}

func (r *CompanyResource) Create(ctx context.Context, actor models.Identity, in *models.Company) (*models.Company, error) {
	return r.services.Companies.CreateCompany(ctx, actor, in, nil)
}

// Update replaces the editable fields with in's; a nil address detaches it.
func (r *CompanyResource) Update(ctx context.Context, actor models.Identity, id uuid.UUID, in *models.Company) (*models.Company, error) {
	return r.services.Companies.UpdateCompany(ctx, actor, id, &models.CompanyUpdate{
		Title:        &in.Title,
		Phone:        &in.Phone,
		AddressID:    in.AddressID,
		ClearAddress: in.AddressID == nil,
	})
}

func (r *CompanyResource) Delete(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	return r.services.Companies.DeleteCompany(ctx, actor, id)
}

// EquipmentResource exposes equipment to the REST API.
type EquipmentResource struct {
	services *Services
}

func NewEquipmentResource(services *Services) *EquipmentResource {
	return &EquipmentResource{services: services}
}

func (r *EquipmentResource) List(ctx context.Context, actor models.Identity) ([]models.Equipment, error) {
	return r.services.Queries.ListEquipment(ctx, actor)
}

func (r *EquipmentResource) Retrieve(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Equipment, error) {
	return r.services.Queries.GetEquipment(ctx, actor, id)
}

func (r *EquipmentResource) Create(ctx context.Context, actor models.Identity, in *models.Equipment) (*models.Equipment, error) {
	return r.services.Equipment.CreateEquipment(ctx, actor, in)
}

func (r *EquipmentResource) Update(ctx context.Context, actor models.Identity, id uuid.UUID, in *models.Equipment) (*models.Equipment, error) {
	return r.services.Equipment.UpdateEquipment(ctx, actor, id, &models.EquipmentUpdate{
		Title:         &in.Title,
		Size:          in.Size,
		CategoryID:    in.CategoryID,
		ClearSize:     in.Size == nil,
		ClearCategory: in.CategoryID == nil,
	})
}

func (r *EquipmentResource) Delete(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	return r.services.Equipment.DeleteEquipment(ctx, actor, id)
}

// ReviewResource exposes reviews to the REST API.
type ReviewResource struct {
	services *Services
}

func NewReviewResource(services *Services) *ReviewResource {
	return &ReviewResource{services: services}
}

func (r *ReviewResource) List(ctx context.Context, actor models.Identity) ([]models.Review, error) {
	return r.services.Queries.ListReviews(ctx, actor)
}

func (r *ReviewResource) Retrieve(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Review, error) {
	return r.services.Queries.GetReview(ctx, actor, id)
}

func (r *ReviewResource) Create(ctx context.Context, actor models.Identity, in *models.Review) (*models.Review, error) {
	return r.services.Reviews.CreateReview(ctx, actor, in.EquipmentID, in)
}

// Update keeps the stored rating unless in was decoded with one.
func (r *ReviewResource) Update(ctx context.Context, actor models.Identity, id uuid.UUID, in *models.Review) (*models.Review, error) {
	update := &models.ReviewUpdate{Text: &in.Text}
	if in.RatingSet() {
		update.Rating = &in.Rating
	}
	return r.services.Reviews.UpdateReview(ctx, actor, id, update)
}

func (r *ReviewResource) Delete(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	_, err := r.services.Reviews.DeleteReview(ctx, actor, id)
	return err
}
