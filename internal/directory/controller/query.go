package controller

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/policy"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// QueryService assembles the read-side projections. Everything except the
// homepage counts requires an authenticated caller.
type QueryService struct {
	repo   Repository
	logger *zap.Logger
}

func NewQueryService(repo Repository, logger *zap.Logger) *QueryService {
	return &QueryService{repo: repo, logger: logger.Named("query_service")}
}

// Homepage returns the directory totals. It is public.
func (s *QueryService) Homepage(ctx context.Context) (*models.Counts, error) {
	var counts models.Counts
	var err error
	if counts.Companies, err = s.repo.CountCompanies(ctx); err != nil {
		return nil, wrap(err, "count companies")
	}
	if counts.Equipment, err = s.repo.CountEquipment(ctx); err != nil {
		return nil, wrap(err, "count equipment")
	}
	if counts.Reviews, err = s.repo.CountReviews(ctx); err != nil {
		return nil, wrap(err, "count reviews")
	}
	return &counts, nil
}

func (s *QueryService) ListCompanies(ctx context.Context, actor models.Identity) ([]models.Company, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, wrap(err, "list companies")
	}
	return companies, nil
}

func (s *QueryService) GetCompany(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Company, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, wrap(err, "get company")
	}
	return company, nil
}

// CompanyDetail is the company with the equipment linked to it.
func (s *QueryService) CompanyDetail(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.CompanyDetail, error) {
	company, err := s.GetCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	equipment, err := s.repo.EquipmentForCompany(ctx, id)
	if err != nil {
		return nil, wrap(err, "list company equipment")
	}
	return &models.CompanyDetail{Company: company, Equipment: equipment}, nil
}

func (s *QueryService) ListEquipment(ctx context.Context, actor models.Identity) ([]models.Equipment, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	equipment, err := s.repo.ListEquipment(ctx)
	if err != nil {
		return nil, wrap(err, "list equipment")
	}
	return equipment, nil
}

func (s *QueryService) GetEquipment(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Equipment, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	equipment, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return nil, wrap(err, "get equipment")
	}
	return equipment, nil
}

// EquipmentDetail returns the equipment, its reviews with the reviewers'
// names, the companies it is linked to and the companies it can still be
// added to.
func (s *QueryService) EquipmentDetail(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.EquipmentDetail, error) {
	equipment, err := s.GetEquipment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.ReviewsForEquipment(ctx, id)
	if err != nil {
		return nil, wrap(err, "list reviews")
	}
	linked, err := s.repo.CompaniesForEquipment(ctx, id)
	if err != nil {
		return nil, wrap(err, "list linked companies")
	}
	all, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, wrap(err, "list companies")
	}

	linkedIDs := lo.KeyBy(linked, func(c models.Company) uuid.UUID { return c.ID })
	return &models.EquipmentDetail{
		Equipment: equipment,
		Reviews: lo.Map(reviews, func(r models.Review, _ int) models.ReviewEntry {
			return models.NewReviewEntry(&r)
		}),
		Companies: linked,
		AvailableCompanies: lo.Filter(all, func(c models.Company, _ int) bool {
			_, ok := linkedIDs[c.ID]
			return !ok
		}),
	}, nil
}

func (s *QueryService) ListReviews(ctx context.Context, actor models.Identity) ([]models.Review, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListReviews(ctx)
	if err != nil {
		return nil, wrap(err, "list reviews")
	}
	return reviews, nil
}

func (s *QueryService) GetReview(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Review, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	review, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return nil, wrap(err, "get review")
	}
	return review, nil
}

func (s *QueryService) ListCategories(ctx context.Context, actor models.Identity) ([]models.Category, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, wrap(err, "list categories")
	}
	return categories, nil
}

// Profile returns the actor's own profile.
func (s *QueryService) Profile(ctx context.Context, actor models.Identity) (*models.Profile, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	return s.profile(ctx, actor.AccountID)
}

// ProfileByAccount returns the profile of any client, looked up by its
// numeric account reference.
func (s *QueryService) ProfileByAccount(ctx context.Context, actor models.Identity, accountID uint) (*models.Profile, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	return s.profile(ctx, accountID)
}

func (s *QueryService) profile(ctx context.Context, accountID uint) (*models.Profile, error) {
	client, err := s.repo.GetClientByAccount(ctx, accountID)
	if err != nil {
		return nil, wrap(err, "get client")
	}
	reviews, err := s.repo.ReviewsByClient(ctx, client.ID)
	if err != nil {
		return nil, wrap(err, "list client reviews")
	}
	companies, err := s.repo.CompaniesByClient(ctx, client.ID)
	if err != nil {
		return nil, wrap(err, "list client companies")
	}
	equipment, err := s.repo.EquipmentByClient(ctx, client.ID)
	if err != nil {
		return nil, wrap(err, "list client equipment")
	}
	return &models.Profile{
		Client:    client,
		Reviews:   reviews,
		Companies: companies,
		Equipment: equipment,
	}, nil
}
