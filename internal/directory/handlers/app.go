package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/controller"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const (
	homePath       = "/app"
	loginPath      = "/app/login"
	profilePath    = "/app/profile"
	companiesPath  = "/app/companies"
	equipmentPath  = "/app/equipment"
	categoriesPath = "/app/categories"
	addressesPath  = "/app/addresses"
)

// LoginRequest is the credential form of POST /app/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CompanyForm creates a company, optionally together with a new address.
type CompanyForm struct {
	Title     string          `json:"title"`
	Phone     string          `json:"phone"`
	AddressID *uuid.UUID      `json:"address_id"`
	Address   *models.Address `json:"address"`
}

// AssociationForm names the company on the other side of the link.
type AssociationForm struct {
	CompanyID uuid.UUID `json:"company_id"`
}

type appHandlerFunc func(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string)

// AppHandler serves the interactive /app routes. Reads answer with JSON
// projections; mutations answer with a 303 redirect and one-shot messages.
type AppHandler struct {
	services  *controller.Services
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAppHandler(services *controller.Services, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AppHandler {
	if tokenTTL <= 0 {
		tokenTTL = auth.DefaultTTL
	}
	return &AppHandler{
		services:  services,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger.Named("app"),
	}
}

// Register mounts the interactive routes.
func (h *AppHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handle  appHandlerFunc
	}{
		{http.MethodGet, homePath, h.home},
		{http.MethodPost, "/app/register", h.register},
		{http.MethodPost, loginPath, h.login},
		{http.MethodGet, profilePath, h.profile},
		{http.MethodGet, profilePath + "/{account_id}", h.profileByAccount},

		{http.MethodGet, companiesPath, h.listCompanies},
		{http.MethodPost, companiesPath, h.createCompany},
		{http.MethodGet, companiesPath + "/{id}", h.companyDetail},
		{http.MethodPost, companiesPath + "/{id}/edit", h.updateCompany},
		{http.MethodPost, companiesPath + "/{id}/delete", h.deleteCompany},

		{http.MethodGet, equipmentPath, h.listEquipment},
		{http.MethodPost, equipmentPath, h.createEquipment},
		{http.MethodGet, equipmentPath + "/{id}", h.equipmentDetail},
		{http.MethodPost, equipmentPath + "/{id}/edit", h.updateEquipment},
		{http.MethodPost, equipmentPath + "/{id}/delete", h.deleteEquipment},
		{http.MethodPost, equipmentPath + "/{id}/reviews", h.createReview},
		{http.MethodPost, equipmentPath + "/{id}/associate", h.associate},
		{http.MethodPost, equipmentPath + "/{id}/disassociate", h.disassociate},

		{http.MethodPost, "/app/reviews/{id}/edit", h.updateReview},
		{http.MethodPost, "/app/reviews/{id}/delete", h.deleteReview},

		{http.MethodGet, categoriesPath, h.listCategories},
		{http.MethodPost, categoriesPath, h.createCategory},
		{http.MethodPost, categoriesPath + "/{id}/delete", h.deleteCategory},

		{http.MethodGet, addressesPath, h.listAddresses},
		{http.MethodPost, addressesPath, h.createAddress},
		{http.MethodPost, addressesPath + "/{id}/edit", h.updateAddress},
		{http.MethodPost, addressesPath + "/{id}/delete", h.deleteAddress},
	}
	for _, route := range routes {
		handle := route.handle
		err := mux.HandlePath(route.method, route.pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
			handle(w, r, auth.IdentityFromContext(r.Context()), params)
		})
		if err != nil {
			return fmt.Errorf("failed to register %s %s: %w", route.method, route.pattern, err)
		}
	}
	return nil
}

// fail renders err for an interactive route. Anonymous callers are sent to
// the login view and denied ones back to fallback.
func (h *AppHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, e.ErrUnauthenticated):
		redirect(w, loginPath+"?next="+url.QueryEscape(r.URL.Path),
			Message{Level: levelInfo, Message: "Please log in to continue."})
	case errors.Is(err, e.ErrPermissionDenied):
		h.logger.Warn("permission denied",
			zap.String("path", r.URL.Path),
			zap.Uint("account_id", auth.IdentityFromContext(r.Context()).AccountID),
		)
		redirect(w, fallback, Message{Level: levelError, Message: err.Error()})
	default:
		writeError(w, h.logger, err)
	}
}

func pathID(params map[string]string, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(params[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", e.ErrNotFound, name, params[name])
	}
	return id, nil
}

func nextOr(r *http.Request, fallback string) string {
	return safeNext(r.URL.Query().Get("next"), fallback)
}

func (h *AppHandler) home(w http.ResponseWriter, r *http.Request, _ models.Identity, _ map[string]string) {
	counts, err := h.services.Queries.Homepage(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *AppHandler) register(w http.ResponseWriter, r *http.Request, _ models.Identity, _ map[string]string) {
	var reg controller.Registration
	if err := decodeJSON(r, &reg); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.services.Accounts.Register(r.Context(), &reg); err != nil {
		writeError(w, h.logger, err)
		return
	}
	redirect(w, loginPath, Message{Level: levelSuccess, Message: "Registration successful. You can now log in."})
}

func (h *AppHandler) login(w http.ResponseWriter, r *http.Request, _ models.Identity, _ map[string]string) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	identity, err := h.services.Accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	token, err := auth.GenerateToken(identity, h.jwtSecret, h.tokenTTL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: time.Now().Add(h.tokenTTL).UTC()})
}

func (h *AppHandler) profile(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	profile, err := h.services.Queries.Profile(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, homePath)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AppHandler) profileByAccount(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	accountID, err := strconv.ParseUint(params["account_id"], 10, 64)
	if err != nil || accountID == 0 {
		writeError(w, h.logger, fmt.Errorf("%w: invalid account id %q", e.ErrNotFound, params["account_id"]))
		return
	}
	profile, err := h.services.Queries.ProfileByAccount(r.Context(), actor, uint(accountID))
	if err != nil {
		h.fail(w, r, err, homePath)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AppHandler) listCompanies(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	companies, err := h.services.Queries.ListCompanies(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, homePath)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(companies))
}

func (h *AppHandler) createCompany(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	var form CompanyForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, h.logger, err)
		return
	}
	company := &models.Company{Title: form.Title, Phone: form.Phone, AddressID: form.AddressID}
	created, err := h.services.Companies.CreateCompany(r.Context(), actor, company, form.Address)
	if err != nil {
		h.fail(w, r, err, companiesPath)
		return
	}
	redirect(w, companiesPath+"/"+created.ID.String(),
		Message{Level: levelSuccess, Message: "Company created successfully."})
}

func (h *AppHandler) companyDetail(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	detail, err := h.services.Queries.CompanyDetail(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err, companiesPath)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *AppHandler) updateCompany(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var update models.CompanyUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.logger, err)
		return
	}
	detailPath := companiesPath + "/" + id.String()
	if _, err := h.services.Companies.UpdateCompany(r.Context(), actor, id, &update); err != nil {
		h.fail(w, r, err, detailPath)
		return
	}
	redirect(w, detailPath, Message{Level: levelSuccess, Message: "Company updated successfully."})
}

func (h *AppHandler) deleteCompany(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.services.Companies.DeleteCompany(r.Context(), actor, id); err != nil {
		h.fail(w, r, err, companiesPath+"/"+id.String())
		return
	}
	redirect(w, nextOr(r, companiesPath), Message{Level: levelSuccess, Message: "Company deleted successfully."})
}

func (h *AppHandler) listEquipment(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	equipment, err := h.services.Queries.ListEquipment(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, homePath)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(equipment))
}

func (h *AppHandler) createEquipment(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	var equipment models.Equipment
	if err := decodeJSON(r, &equipment); err != nil {
		writeError(w, h.logger, err)
		return
	}
	created, err := h.services.Equipment.CreateEquipment(r.Context(), actor, &equipment)
	if err != nil {
		h.fail(w, r, err, equipmentPath)
		return
	}
	redirect(w, equipmentPath+"/"+created.ID.String(),
		Message{Level: levelSuccess, Message: "Equipment created successfully."})
}

func (h *AppHandler) equipmentDetail(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	detail, err := h.services.Queries.EquipmentDetail(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err, equipmentPath)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *AppHandler) updateEquipment(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var update models.EquipmentUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.logger, err)
		return
	}
	detailPath := equipmentPath + "/" + id.String()
	if _, err := h.services.Equipment.UpdateEquipment(r.Context(), actor, id, &update); err != nil {
		h.fail(w, r, err, detailPath)
		return
	}
	redirect(w, detailPath, Message{Level: levelSuccess, Message: "Equipment updated successfully."})
}

func (h *AppHandler) deleteEquipment(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.services.Equipment.DeleteEquipment(r.Context(), actor, id); err != nil {
		h.fail(w, r, err, equipmentPath+"/"+id.String())
		return
	}
	redirect(w, nextOr(r, equipmentPath), Message{Level: levelSuccess, Message: "Equipment deleted successfully."})
}

func (h *AppHandler) createReview(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	equipmentID, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var review models.Review
	if err := decodeJSON(r, &review); err != nil {
		writeError(w, h.logger, err)
		return
	}
	detailPath := equipmentPath + "/" + equipmentID.String()
	if _, err := h.services.Reviews.CreateReview(r.Context(), actor, equipmentID, &review); err != nil {
		h.fail(w, r, err, detailPath)
		return
	}
	redirect(w, detailPath, Message{Level: levelSuccess, Message: "Review added successfully."})
}

func (h *AppHandler) associate(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	equipmentID, form, ok := h.associationRequest(w, r, params)
	if !ok {
		return
	}
	detailPath := equipmentPath + "/" + equipmentID.String()
	result, err := h.services.Associations.Associate(r.Context(), actor, equipmentID, form.CompanyID)
	if err != nil {
		h.fail(w, r, err, detailPath)
		return
	}
	level := levelSuccess
	if result == controller.AlreadyAssociated {
		level = levelInfo
	}
	redirect(w, detailPath, Message{Level: level, Message: result.Message()})
}

func (h *AppHandler) disassociate(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	equipmentID, form, ok := h.associationRequest(w, r, params)
	if !ok {
		return
	}
	detailPath := equipmentPath + "/" + equipmentID.String()
	if err := h.services.Associations.Disassociate(r.Context(), actor, equipmentID, form.CompanyID); err != nil {
		h.fail(w, r, err, detailPath)
		return
	}
	redirect(w, nextOr(r, detailPath),
		Message{Level: levelSuccess, Message: "Equipment removed from the company."})
}

func (h *AppHandler) associationRequest(w http.ResponseWriter, r *http.Request, params map[string]string) (uuid.UUID, AssociationForm, bool) {
	var form AssociationForm
	equipmentID, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return uuid.Nil, form, false
	}
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, h.logger, err)
		return uuid.Nil, form, false
	}
	if form.CompanyID == uuid.Nil {
		writeError(w, h.logger, e.NewValidationError("company_id", "This field is required."))
		return uuid.Nil, form, false
	}
	return equipmentID, form, true
}

// reviewFallback is the equipment page of the review, or the profile when
// the review cannot be read.
func (h *AppHandler) reviewFallback(r *http.Request, actor models.Identity, id uuid.UUID) string {
	review, err := h.services.Queries.GetReview(r.Context(), actor, id)
	if err != nil {
		return profilePath
	}
	return equipmentPath + "/" + review.EquipmentID.String()
}

func (h *AppHandler) updateReview(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var update models.ReviewUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.logger, err)
		return
	}
	review, err := h.services.Reviews.UpdateReview(r.Context(), actor, id, &update)
	if err != nil {
		h.fail(w, r, err, h.reviewFallback(r, actor, id))
		return
	}
	redirect(w, equipmentPath+"/"+review.EquipmentID.String(),
		Message{Level: levelSuccess, Message: "Review updated successfully."})
}

func (h *AppHandler) deleteReview(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	review, err := h.services.Reviews.DeleteReview(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err, h.reviewFallback(r, actor, id))
		return
	}
	redirect(w, nextOr(r, equipmentPath+"/"+review.EquipmentID.String()),
		Message{Level: levelSuccess, Message: "Review deleted successfully."})
}

func (h *AppHandler) listCategories(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	categories, err := h.services.Catalog.ListCategories(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, homePath)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(categories))
}

func (h *AppHandler) createCategory(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	var category models.Category
	if err := decodeJSON(r, &category); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.services.Catalog.CreateCategory(r.Context(), actor, &category); err != nil {
		h.fail(w, r, err, categoriesPath)
		return
	}
	redirect(w, categoriesPath, Message{Level: levelSuccess, Message: "Category created successfully."})
}

func (h *AppHandler) deleteCategory(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.services.Catalog.DeleteCategory(r.Context(), actor, id); err != nil {
		h.fail(w, r, err, categoriesPath)
		return
	}
	redirect(w, nextOr(r, categoriesPath), Message{Level: levelSuccess, Message: "Category deleted successfully."})
}

func (h *AppHandler) listAddresses(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	addresses, err := h.services.Catalog.ListAddresses(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err, homePath)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(addresses))
}

func (h *AppHandler) createAddress(w http.ResponseWriter, r *http.Request, actor models.Identity, _ map[string]string) {
	var address models.Address
	if err := decodeJSON(r, &address); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.services.Catalog.CreateAddress(r.Context(), actor, &address); err != nil {
		h.fail(w, r, err, addressesPath)
		return
	}
	redirect(w, addressesPath, Message{Level: levelSuccess, Message: "Address created successfully."})
}

func (h *AppHandler) updateAddress(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var update models.AddressUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.services.Catalog.UpdateAddress(r.Context(), actor, id, &update); err != nil {
		h.fail(w, r, err, addressesPath)
		return
	}
	redirect(w, addressesPath, Message{Level: levelSuccess, Message: "Address updated successfully."})
}

func (h *AppHandler) deleteAddress(w http.ResponseWriter, r *http.Request, actor models.Identity, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.services.Catalog.DeleteAddress(r.Context(), actor, id); err != nil {
		h.fail(w, r, err, addressesPath)
		return
	}
	redirect(w, nextOr(r, addressesPath), Message{Level: levelSuccess, Message: "Address deleted successfully."})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
