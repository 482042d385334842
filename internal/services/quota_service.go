package services

import (
	"context"
	"fmt"
	"time"

	"nativeai_backend/internal/logger"
	"nativeai_backend/internal/models"
	"nativeai_backend/internal/period"
	"nativeai_backend/internal/quotastore"
	"nativeai_backend/internal/repositories"
	"nativeai_backend/internal/services/dto"
	"nativeai_backend/internal/utils"
	"nativeai_backend/pkg/apperrors"
)

// Caps holds the base token ceilings per plan tier. A business parameter
// supplied from configuration; top-ups are layered on top per period.
type Caps struct {
	FreeWeekly int64
	ProMonthly int64
}

func (c Caps) base(plan models.PlanTier) int64 {
	if plan == models.PlanPro {
		return c.ProMonthly
	}
	return c.FreeWeekly
}

// QuotaService is the read-only, self-scoped view of a user's quota plus the
// two operations the chat path needs: the admission check and the usage
// write-back. End-user callers never mutate plans or allowances through it.
type QuotaService interface {
	GetCap(ctx context.Context, userID, periodKey string) (int64, error)
	GetUsed(ctx context.Context, userID, periodKey string) (int64, error)
	GetStatus(ctx context.Context, userID string) (*dto.QuotaInfo, error)

	// CheckAdmission decides allow/deny before the costly AI call. It
	// derives the period key from the user's stored plan and returns it so
	// the caller can write usage back under the same key. Denials surface
	// as ErrQuotaExceeded; any read failure denies too (fail closed).
	CheckAdmission(ctx context.Context, userID string) (string, error)

	// RecordUsage atomically adds the billed token cost for a completed
	// call. Must be invoked exactly once per real consumption event.
	RecordUsage(ctx context.Context, userID, periodKey string, tokens int64) (int64, error)
}

// QuotaAdminService is the privileged capability of the billing trust
// boundary. Handlers expose it only behind the admin role middleware.
type QuotaAdminService interface {
	SetPlan(ctx context.Context, userID, plan string) (models.PlanTier, error)
	GrantAllowance(ctx context.Context, userID string, tokens int64) (*dto.GrantAllowanceResponse, error)
	ResolveUserIDByEmail(ctx context.Context, email string) (*dto.ResolveUserResponse, error)
}

type quotaService struct {
	counters quotastore.CounterStore
	planRepo repositories.PlanRepository
	caps     Caps
	now      func() time.Time
}

func NewQuotaService(counters quotastore.CounterStore, planRepo repositories.PlanRepository, caps Caps) QuotaService {
	return &quotaService{
		counters: counters,
		planRepo: planRepo,
		caps:     caps,
		now:      time.Now,
	}
}

func (s *quotaService) GetCap(ctx context.Context, userID, periodKey string) (int64, error) {
	plan, err := s.planRepo.GetPlan(userID)
	if err != nil {
		return 0, apperrors.ErrStorageUnavailable(err)
	}

	allowance, err := s.counters.GetAllowance(ctx, userID, periodKey)
	if err != nil {
		return 0, apperrors.ErrStorageUnavailable(err)
	}

	return s.caps.base(plan) + allowance, nil
}

func (s *quotaService) GetUsed(ctx context.Context, userID, periodKey string) (int64, error) {
	used, err := s.counters.GetUsed(ctx, userID, periodKey)
	if err != nil {
		return 0, apperrors.ErrStorageUnavailable(err)
	}
	return used, nil
}

func (s *quotaService) GetStatus(ctx context.Context, userID string) (*dto.QuotaInfo, error) {
	plan, err := s.planRepo.GetPlan(userID)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	periodKey := period.KeyFor(plan, s.now())

	used, err := s.counters.GetUsed(ctx, userID, periodKey)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	allowance, err := s.counters.GetAllowance(ctx, userID, periodKey)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	cap := s.caps.base(plan) + allowance
	remaining := cap - used
	if remaining < 0 {
		remaining = 0
	}

	return &dto.QuotaInfo{
		Plan:      string(plan),
		Period:    periodKey,
		Used:      used,
		Allowance: allowance,
		Cap:       cap,
		Remaining: remaining,
	}, nil
}

// CheckAdmission applies the soft-limit rule: admit while used < cap. It
// does not reserve tokens, so concurrent in-flight requests can overshoot
// the cap by their combined cost before their usage lands; that is accepted
// behavior, not a hard admission barrier.
func (s *quotaService) CheckAdmission(ctx context.Context, userID string) (string, error) {
	plan, err := s.planRepo.GetPlan(userID)
	if err != nil {
		return "", apperrors.ErrStorageUnavailable(err)
	}

	periodKey := period.KeyFor(plan, s.now())

	allowance, err := s.counters.GetAllowance(ctx, userID, periodKey)
	if err != nil {
		return "", apperrors.ErrStorageUnavailable(err)
	}

	used, err := s.counters.GetUsed(ctx, userID, periodKey)
	if err != nil {
		return "", apperrors.ErrStorageUnavailable(err)
	}

	cap := s.caps.base(plan) + allowance
	if used >= cap {
		logger.CtxInfo(ctx, "quota admission rejected",
			"plan", string(plan), "period", periodKey, "used", used, "cap", cap)
		return "", apperrors.ErrQuotaExceeded
	}

	return periodKey, nil
}

func (s *quotaService) RecordUsage(ctx context.Context, userID, periodKey string, tokens int64) (int64, error) {
	total, err := s.counters.AddUsed(ctx, userID, periodKey, tokens)
	if err != nil {
		return 0, apperrors.ErrStorageUnavailable(err)
	}
	return total, nil
}

// --- Admin / billing trust boundary ---

type quotaAdminService struct {
	counters quotastore.CounterStore
	planRepo repositories.PlanRepository
	userRepo repositories.UserRepository
	mailer   *utils.EmailSender // nil when email is disabled
	now      func() time.Time
}

func NewQuotaAdminService(
	counters quotastore.CounterStore,
	planRepo repositories.PlanRepository,
	userRepo repositories.UserRepository,
	mailer *utils.EmailSender,
) QuotaAdminService {
	return &quotaAdminService{
		counters: counters,
		planRepo: planRepo,
		userRepo: userRepo,
		mailer:   mailer,
		now:      time.Now,
	}
}

func (s *quotaAdminService) SetPlan(ctx context.Context, userID, plan string) (models.PlanTier, error) {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if err == repositories.ErrUserNotFound {
			return "", apperrors.ErrNotFound(err)
		}
		return "", apperrors.ErrStorageUnavailable(err)
	}

	stored, err := s.planRepo.SetPlan(userID, plan)
	if err != nil {
		return "", apperrors.ErrStorageUnavailable(err)
	}

	logger.CtxInfo(ctx, "plan updated", "target_user", userID, "plan", string(stored))
	return stored, nil
}

// GrantAllowance adds a top-up for the user's current period. The period key
// is derived server-side from the stored plan so grant and consumption paths
// always agree on the window.
func (s *quotaAdminService) GrantAllowance(ctx context.Context, userID string, tokens int64) (*dto.GrantAllowanceResponse, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	plan, err := s.planRepo.GetPlan(userID)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	periodKey := period.KeyFor(plan, s.now())

	total, err := s.counters.AddAllowance(ctx, userID, periodKey, tokens)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	logger.CtxInfo(ctx, "allowance granted",
		"target_user", userID, "period", periodKey, "tokens", tokens, "total_allowance", total)

	if s.mailer != nil && tokens > 0 {
		subject := "Your Native AI token top-up"
		body := fmt.Sprintf("<p>%d bonus tokens were added to your account for period %s.</p>", tokens, periodKey)
		if err := s.mailer.Send(user.Email, subject, body); err != nil {
			// Notification failure must not undo the grant.
			logger.CtxWithError(ctx, "failed to send top-up notification", err, "target_user", userID)
		}
	}

	return &dto.GrantAllowanceResponse{
		UserID:    userID,
		Period:    periodKey,
		Allowance: total,
	}, nil
}

func (s *quotaAdminService) ResolveUserIDByEmail(ctx context.Context, email string) (*dto.ResolveUserResponse, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	return &dto.ResolveUserResponse{
		UserID: user.ID,
		Email:  user.Email,
	}, nil
}
