package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nativeai_backend/internal/auth"
	"nativeai_backend/internal/models"
	"nativeai_backend/internal/quotastore"
	"nativeai_backend/internal/repositories"
	"nativeai_backend/internal/services"
	"nativeai_backend/internal/services/dto"
	"nativeai_backend/internal/validator"
)

type fakeAdminPlanRepo struct {
	plans map[string]models.PlanTier
}

func (f *fakeAdminPlanRepo) GetPlan(userID string) (models.PlanTier, error) {
	if plan, ok := f.plans[userID]; ok {
		return plan, nil
	}
	return models.PlanFree, nil
}

func (f *fakeAdminPlanRepo) SetPlan(userID string, plan string) (models.PlanTier, error) {
	normalized := models.NormalizePlan(plan)
	f.plans[userID] = normalized
	return normalized, nil
}

type fakeAdminUserRepo struct {
	users map[string]*models.User
}

func (f *fakeAdminUserRepo) FindByID(id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeAdminUserRepo) FindByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeAdminUserRepo) Create(user *models.User) error { return nil }

func (f *fakeAdminUserRepo) CountAll() (int64, error) { return int64(len(f.users)), nil }

func (f *fakeAdminUserRepo) CreateRefreshToken(token *models.RefreshToken) error { return nil }

func (f *fakeAdminUserRepo) FindRefreshToken(token string) (*models.RefreshToken, error) {
	return nil, repositories.ErrUserNotFound
}

func (f *fakeAdminUserRepo) DeleteRefreshToken(token string) error { return nil }

func (f *fakeAdminUserRepo) DeleteUserRefreshTokens(userID string) error { return nil }

func (f *fakeAdminUserRepo) CleanExpiredRefreshTokens() (int64, error) { return 0, nil }

type adminFixture struct {
	router   *gin.Engine
	planRepo *fakeAdminPlanRepo
	store    quotastore.CounterStore
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	gin.SetMode(gin.TestMode)

	store := quotastore.NewMemoryStore()
	planRepo := &fakeAdminPlanRepo{plans: make(map[string]models.PlanTier)}
	userRepo := &fakeAdminUserRepo{users: map[string]*models.User{
		"user-1": {BaseModel: models.BaseModel{ID: "user-1"}, Email: "user@example.com", Role: models.UserRoleUser},
	}}

	caps := services.Caps{FreeWeekly: 25_000, ProMonthly: 1_000_000}
	quotaService := services.NewQuotaService(store, planRepo, caps)
	adminService := services.NewQuotaAdminService(store, planRepo, userRepo, nil)

	handler := NewAdminHandler(NewBaseHandler(validator.New()), adminService, quotaService)

	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return &adminFixture{router: router, planRepo: planRepo, store: store}
}

func (f *adminFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAdminHandler_PlanAndAllowance(t *testing.T) {
	auth.Init("test-secret", 60)

	adminToken, err := auth.GenerateToken("admin-1", models.UserRoleAdmin)
	require.NoError(t, err)
	userToken, err := auth.GenerateToken("user-1", models.UserRoleUser)
	require.NoError(t, err)

	t.Run("unknown plan value is stored as free", func(t *testing.T) {
		f := newAdminFixture(t)

		rec := f.do(t, http.MethodPut, "/api/v1/admin/users/user-1/plan", adminToken, `{"plan":"bogus"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp dto.SetPlanResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "free", resp.Plan)
		assert.Equal(t, models.PlanFree, f.planRepo.plans["user-1"])
	})

	t.Run("plan value is case-insensitive", func(t *testing.T) {
		f := newAdminFixture(t)

		rec := f.do(t, http.MethodPut, "/api/v1/admin/users/user-1/plan", adminToken, `{"plan":"PRO"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp dto.SetPlanResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "pro", resp.Plan)
		assert.Equal(t, models.PlanPro, f.planRepo.plans["user-1"])
	})

	t.Run("negative grant is clamped to zero", func(t *testing.T) {
		f := newAdminFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/admin/users/user-1/allowance", adminToken, `{"tokens":-500}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp dto.GrantAllowanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Zero(t, resp.Allowance)
	})

	t.Run("zero grant is accepted", func(t *testing.T) {
		f := newAdminFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/admin/users/user-1/allowance", adminToken, `{"tokens":0}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp dto.GrantAllowanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Zero(t, resp.Allowance)
	})

	t.Run("positive grant accumulates", func(t *testing.T) {
		f := newAdminFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/admin/users/user-1/allowance", adminToken, `{"tokens":10000}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = f.do(t, http.MethodPost, "/api/v1/admin/users/user-1/allowance", adminToken, `{"tokens":5000}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp dto.GrantAllowanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(15_000), resp.Allowance)
		assert.NotEmpty(t, resp.Period)
	})

	t.Run("unknown user is a 404", func(t *testing.T) {
		f := newAdminFixture(t)

		rec := f.do(t, http.MethodPut, "/api/v1/admin/users/ghost/plan", adminToken, `{"plan":"pro"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-admin token is rejected", func(t *testing.T) {
		f := newAdminFixture(t)

		rec := f.do(t, http.MethodPut, "/api/v1/admin/users/user-1/plan", userToken, `{"plan":"pro"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		f := newAdminFixture(t)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/users/user-1/plan", strings.NewReader(`{"plan":"pro"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
