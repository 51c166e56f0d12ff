package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/controller"
	"github.com/gartstein/directory/internal/directory/db/dbtest"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const testSecret = "test-secret"

type testEnv struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	services *controller.Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	services := controller.NewServices(dbtest.New(t), events.NopProducer{},
		models.FixedClock(time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)), logger)

	mux, err := NewGatewayMux(nil,
		NewAppHandler(services, testSecret, time.Hour, logger),
		NewResourceHandler[models.Company]("companies", controller.NewCompanyResource(services), logger),
		NewResourceHandler[models.Equipment]("equipment", controller.NewEquipmentResource(services), logger),
		NewResourceHandler[models.Review]("reviews", controller.NewReviewResource(services), logger),
	)
	require.NoError(t, err)

	server := httptest.NewServer(auth.HTTPMiddleware(mux, testSecret))
	t.Cleanup(server.Close)

	return &testEnv{
		t:      t,
		server: server,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		services: services,
	}
}

// do sends body as JSON and returns the response with its body read.
func (env *testEnv) do(method, path, token string, body interface{}) (*http.Response, []byte) {
	env.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(env.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(env.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.client.Do(req)
	require.NoError(env.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(env.t, err)
	return resp, data
}

func (env *testEnv) register(username string, superuser bool) string {
	env.t.Helper()
	reg := controller.Registration{
		Username:  username,
		Password:  "s3cret-pass",
		FirstName: "Test",
		LastName:  "User",
		Email:     username + "@example.com",
	}
	if superuser {
		_, err := env.services.Accounts.CreateSuperuser(context.Background(), &reg)
		require.NoError(env.t, err)
	} else {
		resp, _ := env.do(http.MethodPost, "/app/register", "", reg)
		require.Equal(env.t, http.StatusSeeOther, resp.StatusCode)
	}
	return env.login(username, "s3cret-pass")
}

func (env *testEnv) login(username, password string) string {
	env.t.Helper()
	resp, data := env.do(http.MethodPost, "/app/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(env.t, http.StatusOK, resp.StatusCode, string(data))
	var out LoginResponse
	require.NoError(env.t, json.Unmarshal(data, &out))
	require.NotEmpty(env.t, out.Token)
	return out.Token
}

func decodeRedirect(t *testing.T, resp *http.Response, data []byte) RedirectBody {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode, string(data))
	var body RedirectBody
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, resp.Header.Get("Location"), body.Redirect)
	return body
}

func (env *testEnv) createCompany(token, title string) models.Company {
	env.t.Helper()
	resp, data := env.do(http.MethodPost, "/app/companies", token, CompanyForm{Title: title, Phone: "555-123-4567"})
	body := decodeRedirect(env.t, resp, data)
	var detail models.CompanyDetail
	resp, data = env.do(http.MethodGet, body.Redirect, token, nil)
	require.Equal(env.t, http.StatusOK, resp.StatusCode)
	require.NoError(env.t, json.Unmarshal(data, &detail))
	return *detail.Company
}

// equipmentPage mirrors the equipment detail response.
type equipmentPage struct {
	Equipment models.Equipment `json:"equipment"`
	Reviews   []struct {
		Username string `json:"username"`
		Text     string `json:"text"`
		Rating   int    `json:"rating"`
	} `json:"reviews"`
	Companies          []models.Company `json:"companies"`
	AvailableCompanies []models.Company `json:"available_companies"`
}

func (env *testEnv) createEquipment(token, title string) models.Equipment {
	env.t.Helper()
	resp, data := env.do(http.MethodPost, "/app/equipment", token, map[string]interface{}{"title": title, "size": 2})
	body := decodeRedirect(env.t, resp, data)
	var page equipmentPage
	resp, data = env.do(http.MethodGet, body.Redirect, token, nil)
	require.Equal(env.t, http.StatusOK, resp.StatusCode)
	require.NoError(env.t, json.Unmarshal(data, &page))
	return page.Equipment
}

func TestMapServiceError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", fmt.Errorf("get company: %w", e.ErrNotFound), codes.NotFound},
		{"unauthenticated", e.ErrUnauthenticated, codes.Unauthenticated},
		{"permission denied", e.ErrPermissionDenied, codes.PermissionDenied},
		{"validation", e.NewValidationError("phone", "bad"), codes.InvalidArgument},
		{"conflict wins over invalid input", fmt.Errorf("%w: %w", e.ErrConflict, e.NewValidationError("username", "taken")), codes.AlreadyExists},
		{"internal", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(mapServiceError(logger, tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
		})
	}
	assert.Equal(t, 1, logs.FilterMessage("Internal server error").Len())
}

func TestWriteErrorIncludesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zaptest.NewLogger(t), e.NewValidationError("phone", "Phone number must be entered in the format: '+999999999'."))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "phone", body.Fields[0].Field)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/app/profile", safeNext("/app/profile", "/app"))
	assert.Equal(t, "/app", safeNext("", "/app"))
	assert.Equal(t, "/app", safeNext("https://evil.example.com", "/app"))
	assert.Equal(t, "/app", safeNext("//evil.example.com/x", "/app"))
}

func TestHomepageIsPublic(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("testuser", false)
	env.createCompany(token, "Acme")

	resp, data := env.do(http.MethodGet, "/app", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var counts models.Counts
	require.NoError(t, json.Unmarshal(data, &counts))
	assert.Equal(t, int64(1), counts.Companies)
	assert.Equal(t, int64(0), counts.Equipment)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register("testuser", false)

	resp, data := env.do(http.MethodPost, "/app/register", "", controller.Registration{
		Username: "testuser", Password: "another-pass", FirstName: "A", LastName: "B", Email: "a@example.com",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(data))

	resp, _ = env.do(http.MethodPost, "/app/login", "", LoginRequest{Username: "testuser", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(http.MethodGet, "/app/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(http.MethodGet, "/app/companies", "", nil)
	body := decodeRedirect(t, resp, data)
	assert.Equal(t, "/app/login?next=%2Fapp%2Fcompanies", body.Redirect)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, levelInfo, body.Messages[0].Level)
}

func TestEquipmentFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("testuser", false)

	drill := env.createEquipment(token, "Drill")
	acme := env.createCompany(token, "Acme")
	detailPath := "/app/equipment/" + drill.ID.String()

	resp, data := env.do(http.MethodPost, detailPath+"/associate", token, AssociationForm{CompanyID: acme.ID})
	body := decodeRedirect(t, resp, data)
	assert.Equal(t, detailPath, body.Redirect)
	assert.Equal(t, []Message{{Level: levelSuccess, Message: controller.Associated.Message()}}, body.Messages)

	resp, data = env.do(http.MethodPost, detailPath+"/associate", token, AssociationForm{CompanyID: acme.ID})
	body = decodeRedirect(t, resp, data)
	assert.Equal(t, []Message{{Level: levelInfo, Message: controller.AlreadyAssociated.Message()}}, body.Messages)

	resp, data = env.do(http.MethodPost, detailPath+"/reviews", token, map[string]string{"text": "Great drill"})
	decodeRedirect(t, resp, data)

	resp, data = env.do(http.MethodGet, detailPath, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail equipmentPage
	require.NoError(t, json.Unmarshal(data, &detail))
	require.Len(t, detail.Companies, 1)
	assert.Equal(t, "Acme", detail.Companies[0].Title)
	assert.Empty(t, detail.AvailableCompanies)
	require.Len(t, detail.Reviews, 1)
	assert.Equal(t, "testuser", detail.Reviews[0].Username)
	assert.Equal(t, models.DefaultRating, detail.Reviews[0].Rating)

	resp, data = env.do(http.MethodPost, detailPath+"/associate", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))

	resp, data = env.do(http.MethodPost, detailPath+"/disassociate?next=/app/profile", token, AssociationForm{CompanyID: acme.ID})
	body = decodeRedirect(t, resp, data)
	assert.Equal(t, "/app/profile", body.Redirect)

	resp, data = env.do(http.MethodPost, detailPath+"/delete?next=/app/profile", token, nil)
	body = decodeRedirect(t, resp, data)
	assert.Equal(t, "/app/profile", body.Redirect)

	resp, _ = env.do(http.MethodGet, detailPath, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOwnershipDenialRedirects(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("owner", false)
	intruder := env.register("intruder", false)

	drill := env.createEquipment(owner, "Drill")
	detailPath := "/app/equipment/" + drill.ID.String()

	resp, data := env.do(http.MethodPost, detailPath+"/delete", intruder, nil)
	body := decodeRedirect(t, resp, data)
	assert.Equal(t, detailPath, body.Redirect)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, levelError, body.Messages[0].Level)

	resp, _ = env.do(http.MethodGet, detailPath, owner, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCompanyValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("testuser", false)

	resp, data := env.do(http.MethodPost, "/app/companies", token, CompanyForm{Title: "Acme", Phone: "+999"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(data, &body))
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "phone", body.Fields[0].Field)

	resp, _ = env.do(http.MethodPost, "/app/companies", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompanyWithAddress(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("testuser", false)

	resp, data := env.do(http.MethodPost, "/app/companies", token, CompanyForm{
		Title: "Acme",
		Phone: "555-123-4567",
		Address: &models.Address{
			StreetName: "Main", City: "Springfield", State: "IL", HouseNumber: 742,
		},
	})
	body := decodeRedirect(t, resp, data)

	resp, data = env.do(http.MethodGet, body.Redirect, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail models.CompanyDetail
	require.NoError(t, json.Unmarshal(data, &detail))
	require.NotNil(t, detail.Company.Address)
	assert.Equal(t, "Springfield", detail.Company.Address.City)
}

func TestUpdatesClearNullableFields(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register("admin", true)
	drill := env.createEquipment(admin, "Drill")
	require.NotNil(t, drill.Size)

	resp, data := env.do(http.MethodPut, "/api/equipment/"+drill.ID.String(), admin, map[string]interface{}{"title": "Drill", "size": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var cleared models.Equipment
	require.NoError(t, json.Unmarshal(data, &cleared))
	assert.Nil(t, cleared.Size)
	assert.Equal(t, "Drill", cleared.Title)

	resp, data = env.do(http.MethodPost, "/app/companies", admin, CompanyForm{
		Title: "Acme",
		Phone: "555-123-4567",
		Address: &models.Address{
			StreetName: "Main", City: "Springfield", State: "IL", HouseNumber: 742,
		},
	})
	detailPath := decodeRedirect(t, resp, data).Redirect

	resp, data = env.do(http.MethodPost, detailPath+"/edit", admin, map[string]interface{}{"address_id": nil})
	decodeRedirect(t, resp, data)

	resp, data = env.do(http.MethodGet, detailPath, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail models.CompanyDetail
	require.NoError(t, json.Unmarshal(data, &detail))
	assert.Nil(t, detail.Company.AddressID)
	assert.Nil(t, detail.Company.Address)
	assert.Equal(t, "Acme", detail.Company.Title)
}

func TestProfileByAccount(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("testuser", false)
	viewer := env.register("viewer", false)
	env.createCompany(token, "Acme")

	identity, err := auth.ParseToken(token, testSecret)
	require.NoError(t, err)

	resp, data := env.do(http.MethodGet, fmt.Sprintf("/app/profile/%d", identity.AccountID), viewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var profile models.Profile
	require.NoError(t, json.Unmarshal(data, &profile))
	require.Len(t, profile.Companies, 1)
	assert.Equal(t, "Acme", profile.Companies[0].Title)

	resp, _ = env.do(http.MethodGet, "/app/profile/9999", viewer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoriesAreAdminManaged(t *testing.T) {
	env := newTestEnv(t)
	user := env.register("testuser", false)
	admin := env.register("admin", true)

	resp, data := env.do(http.MethodPost, "/app/categories", user, map[string]string{"title": "Tools"})
	body := decodeRedirect(t, resp, data)
	assert.Equal(t, levelError, body.Messages[0].Level)

	resp, data = env.do(http.MethodPost, "/app/categories", admin, map[string]string{"title": "Tools"})
	body = decodeRedirect(t, resp, data)
	assert.Equal(t, levelSuccess, body.Messages[0].Level)

	resp, data = env.do(http.MethodGet, "/app/categories", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var categories []models.Category
	require.NoError(t, json.Unmarshal(data, &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "Tools", categories[0].Title)
}

func TestAPIPolicy(t *testing.T) {
	env := newTestEnv(t)
	user := env.register("testuser", false)
	admin := env.register("admin", true)
	acme := env.createCompany(user, "Acme")

	resp, _ := env.do(http.MethodGet, "/api/companies", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data := env.do(http.MethodGet, "/api/companies", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var companies []models.Company
	require.NoError(t, json.Unmarshal(data, &companies))
	require.Len(t, companies, 1)

	resp, _ = env.do(http.MethodPost, "/api/companies", user, map[string]string{"title": "Beta", "phone": "555-000-1111"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(http.MethodDelete, "/api/companies/"+acme.ID.String(), user, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, data = env.do(http.MethodPost, "/api/companies", admin, map[string]string{"title": "Beta", "phone": "555-000-1111"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	resp, data = env.do(http.MethodPatch, "/api/companies/"+acme.ID.String(), admin, map[string]string{"title": "Acme Corp"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var patched models.Company
	require.NoError(t, json.Unmarshal(data, &patched))
	assert.Equal(t, "Acme Corp", patched.Title)
	assert.Equal(t, "555-123-4567", patched.Phone)

	resp, _ = env.do(http.MethodDelete, "/api/companies/"+acme.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(http.MethodGet, "/api/companies/"+acme.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(http.MethodGet, "/api/companies/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIReviewPatchKeepsRating(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register("admin", true)
	drill := env.createEquipment(admin, "Drill")

	resp, data := env.do(http.MethodPost, "/api/reviews", admin, map[string]interface{}{
		"text": "Solid", "rating": 3, "equipment_id": drill.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var review models.Review
	require.NoError(t, json.Unmarshal(data, &review))
	assert.Equal(t, 3, review.Rating)

	resp, data = env.do(http.MethodPatch, "/api/reviews/"+review.ID.String(), admin, map[string]string{"text": "Very solid"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var patched models.Review
	require.NoError(t, json.Unmarshal(data, &patched))
	assert.Equal(t, "Very solid", patched.Text)
	assert.Equal(t, 3, patched.Rating)

	resp, data = env.do(http.MethodPut, "/api/reviews/"+review.ID.String(), admin, map[string]string{"text": "Still solid"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var replaced models.Review
	require.NoError(t, json.Unmarshal(data, &replaced))
	assert.Equal(t, "Still solid", replaced.Text)
	assert.Equal(t, 3, replaced.Rating, "PUT without rating keeps it")

	resp, _ = env.do(http.MethodPut, "/api/reviews/"+review.ID.String(), admin, map[string]interface{}{"text": "Bad", "rating": 6})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(http.MethodDelete, "/api/reviews/"+uuid.NewString(), admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
