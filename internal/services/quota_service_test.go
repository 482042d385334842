package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nativeai_backend/internal/models"
	"nativeai_backend/internal/quotastore"
	"nativeai_backend/internal/repositories"
	"nativeai_backend/pkg/apperrors"
)

// --- Test doubles ---

type fakePlanRepo struct {
	plans map[string]models.PlanTier
	err   error
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[string]models.PlanTier)}
}

func (f *fakePlanRepo) GetPlan(userID string) (models.PlanTier, error) {
	if f.err != nil {
		return models.PlanFree, f.err
	}
	if plan, ok := f.plans[userID]; ok {
		return plan, nil
	}
	return models.PlanFree, nil
}

func (f *fakePlanRepo) SetPlan(userID string, plan string) (models.PlanTier, error) {
	if f.err != nil {
		return models.PlanFree, f.err
	}
	normalized := models.NormalizePlan(plan)
	f.plans[userID] = normalized
	return normalized, nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) FindByID(id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) FindByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) CountAll() (int64, error) { return int64(len(f.users)), nil }

func (f *fakeUserRepo) CreateRefreshToken(*models.RefreshToken) error          { return nil }
func (f *fakeUserRepo) FindRefreshToken(string) (*models.RefreshToken, error)  { return nil, repositories.ErrUserNotFound }
func (f *fakeUserRepo) DeleteRefreshToken(string) error                        { return nil }
func (f *fakeUserRepo) DeleteUserRefreshTokens(string) error                   { return nil }
func (f *fakeUserRepo) CleanExpiredRefreshTokens() (int64, error)              { return 0, nil }

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) GetUsed(context.Context, string, string) (int64, error) {
	return 0, errors.New("store down")
}
func (failingStore) AddUsed(context.Context, string, string, int64) (int64, error) {
	return 0, errors.New("store down")
}
func (failingStore) GetAllowance(context.Context, string, string) (int64, error) {
	return 0, errors.New("store down")
}
func (failingStore) AddAllowance(context.Context, string, string, int64) (int64, error) {
	return 0, errors.New("store down")
}

var testCaps = Caps{FreeWeekly: 25_000, ProMonthly: 1_000_000}

func newTestQuotaService(counters quotastore.CounterStore, planRepo repositories.PlanRepository, at time.Time) *quotaService {
	svc := NewQuotaService(counters, planRepo, testCaps).(*quotaService)
	svc.now = func() time.Time { return at }
	return svc
}

// --- Tests ---

func TestQuotaService_GetCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	t.Run("free base cap", func(t *testing.T) {
		t.Parallel()

		svc := newTestQuotaService(quotastore.NewMemoryStore(), newFakePlanRepo(), at)

		cap, err := svc.GetCap(ctx, "u1", "2026-W35")
		require.NoError(t, err)
		assert.Equal(t, int64(25_000), cap)
	})

	t.Run("allowance raises cap", func(t *testing.T) {
		t.Parallel()

		store := quotastore.NewMemoryStore()
		svc := newTestQuotaService(store, newFakePlanRepo(), at)

		_, err := store.AddAllowance(ctx, "u1", "2026-W35", 250_000)
		require.NoError(t, err)

		cap, err := svc.GetCap(ctx, "u1", "2026-W35")
		require.NoError(t, err)
		assert.Equal(t, int64(275_000), cap)
	})

	t.Run("pro base cap", func(t *testing.T) {
		t.Parallel()

		plans := newFakePlanRepo()
		plans.plans["u1"] = models.PlanPro
		svc := newTestQuotaService(quotastore.NewMemoryStore(), plans, at)

		cap, err := svc.GetCap(ctx, "u1", "2026-08")
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), cap)
	})
}

func TestQuotaService_CheckAdmission(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	t.Run("admits below cap even when request would overshoot", func(t *testing.T) {
		t.Parallel()

		store := quotastore.NewMemoryStore()
		svc := newTestQuotaService(store, newFakePlanRepo(), at)

		_, err := store.AddUsed(ctx, "u1", "2026-W35", 24_000)
		require.NoError(t, err)

		period, err := svc.CheckAdmission(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "2026-W35", period)
	})

	t.Run("rejects at cap", func(t *testing.T) {
		t.Parallel()

		store := quotastore.NewMemoryStore()
		svc := newTestQuotaService(store, newFakePlanRepo(), at)

		_, err := store.AddUsed(ctx, "u1", "2026-W35", 25_000)
		require.NoError(t, err)

		_, err = svc.CheckAdmission(ctx, "u1")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeQuotaExceeded, appErr.Code)
	})

	t.Run("top-up unblocks a capped user", func(t *testing.T) {
		t.Parallel()

		store := quotastore.NewMemoryStore()
		svc := newTestQuotaService(store, newFakePlanRepo(), at)

		_, err := store.AddUsed(ctx, "u1", "2026-W35", 25_000)
		require.NoError(t, err)

		_, err = svc.CheckAdmission(ctx, "u1")
		require.Error(t, err)

		_, err = store.AddAllowance(ctx, "u1", "2026-W35", 10_000)
		require.NoError(t, err)

		period, err := svc.CheckAdmission(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "2026-W35", period)
	})

	t.Run("pro plan uses month period", func(t *testing.T) {
		t.Parallel()

		plans := newFakePlanRepo()
		plans.plans["u1"] = models.PlanPro
		svc := newTestQuotaService(quotastore.NewMemoryStore(), plans, at)

		period, err := svc.CheckAdmission(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "2026-08", period)
	})

	t.Run("fails closed when the store errors", func(t *testing.T) {
		t.Parallel()

		svc := newTestQuotaService(failingStore{}, newFakePlanRepo(), at)

		_, err := svc.CheckAdmission(ctx, "u1")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeStorageUnavailable, appErr.Code)
	})

	t.Run("fails closed when the plan read errors", func(t *testing.T) {
		t.Parallel()

		plans := newFakePlanRepo()
		plans.err = errors.New("db down")
		svc := newTestQuotaService(quotastore.NewMemoryStore(), plans, at)

		_, err := svc.CheckAdmission(ctx, "u1")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeStorageUnavailable, appErr.Code)
	})
}

func TestQuotaService_RecordUsage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	store := quotastore.NewMemoryStore()
	svc := newTestQuotaService(store, newFakePlanRepo(), at)

	total, err := svc.RecordUsage(ctx, "u1", "2026-W35", 1_200)
	require.NoError(t, err)
	assert.Equal(t, int64(1_200), total)

	total, err = svc.RecordUsage(ctx, "u1", "2026-W35", 800)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000), total)
}

func TestQuotaService_GetStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	store := quotastore.NewMemoryStore()
	svc := newTestQuotaService(store, newFakePlanRepo(), at)

	_, err := store.AddUsed(ctx, "u1", "2026-W35", 4_000)
	require.NoError(t, err)
	_, err = store.AddAllowance(ctx, "u1", "2026-W35", 1_000)
	require.NoError(t, err)

	status, err := svc.GetStatus(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, "free", status.Plan)
	assert.Equal(t, "2026-W35", status.Period)
	assert.Equal(t, int64(4_000), status.Used)
	assert.Equal(t, int64(1_000), status.Allowance)
	assert.Equal(t, int64(26_000), status.Cap)
	assert.Equal(t, int64(22_000), status.Remaining)
}

func TestQuotaAdminService_SetPlan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	user := &models.User{Email: "user@example.com"}
	user.ID = "u1"

	t.Run("normalizes case", func(t *testing.T) {
		t.Parallel()

		svc := NewQuotaAdminService(quotastore.NewMemoryStore(), newFakePlanRepo(), newFakeUserRepo(user), nil)

		tier, err := svc.SetPlan(ctx, "u1", "PRO")
		require.NoError(t, err)
		assert.Equal(t, models.PlanPro, tier)
	})

	t.Run("coerces unknown input to free", func(t *testing.T) {
		t.Parallel()

		svc := NewQuotaAdminService(quotastore.NewMemoryStore(), newFakePlanRepo(), newFakeUserRepo(user), nil)

		tier, err := svc.SetPlan(ctx, "u1", "bogus")
		require.NoError(t, err)
		assert.Equal(t, models.PlanFree, tier)
	})

	t.Run("unknown user is a 404", func(t *testing.T) {
		t.Parallel()

		svc := NewQuotaAdminService(quotastore.NewMemoryStore(), newFakePlanRepo(), newFakeUserRepo(), nil)

		_, err := svc.SetPlan(ctx, "missing", "pro")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	})
}

func TestQuotaAdminService_GrantAllowance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	user := &models.User{Email: "user@example.com"}
	user.ID = "u1"

	t.Run("grants under the current free week", func(t *testing.T) {
		t.Parallel()

		store := quotastore.NewMemoryStore()
		svc := NewQuotaAdminService(store, newFakePlanRepo(), newFakeUserRepo(user), nil).(*quotaAdminService)
		svc.now = func() time.Time { return at }

		resp, err := svc.GrantAllowance(ctx, "u1", 50_000)
		require.NoError(t, err)
		assert.Equal(t, "2026-W35", resp.Period)
		assert.Equal(t, int64(50_000), resp.Allowance)

		resp, err = svc.GrantAllowance(ctx, "u1", 25_000)
		require.NoError(t, err)
		assert.Equal(t, int64(75_000), resp.Allowance)
	})

	t.Run("grants under the current pro month", func(t *testing.T) {
		t.Parallel()

		plans := newFakePlanRepo()
		plans.plans["u1"] = models.PlanPro
		svc := NewQuotaAdminService(quotastore.NewMemoryStore(), plans, newFakeUserRepo(user), nil).(*quotaAdminService)
		svc.now = func() time.Time { return at }

		resp, err := svc.GrantAllowance(ctx, "u1", 10_000)
		require.NoError(t, err)
		assert.Equal(t, "2026-08", resp.Period)
	})

	t.Run("unknown user is a 404", func(t *testing.T) {
		t.Parallel()

		svc := NewQuotaAdminService(quotastore.NewMemoryStore(), newFakePlanRepo(), newFakeUserRepo(), nil)

		_, err := svc.GrantAllowance(ctx, "missing", 10_000)
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	})
}

func TestQuotaAdminService_ResolveUserIDByEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	user := &models.User{Email: "user@example.com"}
	user.ID = "u1"
	svc := NewQuotaAdminService(quotastore.NewMemoryStore(), newFakePlanRepo(), newFakeUserRepo(user), nil)

	resp, err := svc.ResolveUserIDByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.UserID)

	_, err = svc.ResolveUserIDByEmail(ctx, "nobody@example.com")
	require.Error(t, err)
}
