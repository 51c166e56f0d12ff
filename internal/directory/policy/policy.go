// Package policy decides whether an acting identity may read or change an
// entity. Two policies coexist: interactive paths check
// ownership, while the programmatic API only lets superusers mutate.
package policy

import (
	"fmt"
	"net/http"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
)

// RequireAuthenticated guards listing and detail reads.
func RequireAuthenticated(actor models.Identity) error {
	if !actor.Authenticated() {
		return e.ErrUnauthenticated
	}
	return nil
}

// CanModifyCompany allows the owning client or a superuser.
func CanModifyCompany(actor models.Identity, actorClient *models.Client, company *models.Company) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	if actor.Superuser || actorClient.Owns(company.ClientID) {
		return nil
	}
	return fmt.Errorf("%w: you do not have permission to modify this company", e.ErrPermissionDenied)
}

// CanModifyEquipment allows the owning client or a superuser.
func CanModifyEquipment(actor models.Identity, actorClient *models.Client, equipment *models.Equipment) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	if actor.Superuser || actorClient.Owns(equipment.ClientID) {
		return nil
	}
	return fmt.Errorf("%w: you do not have permission to modify this equipment", e.ErrPermissionDenied)
}

// CanModifyReview allows the author's account or a superuser. review.Client
// must be loaded.
func CanModifyReview(actor models.Identity, review *models.Review) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	if actor.Superuser {
		return nil
	}
	if review.Client != nil && review.Client.AccountID == actor.AccountID {
		return nil
	}
	return fmt.Errorf("%w: you do not have permission to modify this review", e.ErrPermissionDenied)
}

// CanModifyCatalog guards categories, which only administrators manage.
func CanModifyCatalog(actor models.Identity) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	if !actor.Superuser {
		return fmt.Errorf("%w: only administrators can manage categories", e.ErrPermissionDenied)
	}
	return nil
}

// APIAccess applies the API policy: safe methods need authentication,
// writes need a superuser, anything else is refused.
func APIAccess(actor models.Identity, method string) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		if actor.Superuser {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires administrator privileges", e.ErrPermissionDenied, method)
}
