package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nativeai_backend/internal/models"
)

// PlanRepository is the authoritative plan tier per user. A missing row
// reads as free (default-deny-to-lowest-tier). Writes come only from the
// admin trust boundary; the row is created implicitly on first write.
type PlanRepository interface {
	GetPlan(userID string) (models.PlanTier, error)
	SetPlan(userID string, plan string) (models.PlanTier, error)
}

type PlanRepositoryImpl struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &PlanRepositoryImpl{db: db}
}

func (r *PlanRepositoryImpl) GetPlan(userID string) (models.PlanTier, error) {
	var row models.UserPlan
	err := r.db.First(&row, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PlanFree, nil
		}
		return models.PlanFree, err
	}
	return row.Plan, nil
}

// SetPlan upserts the user's tier. Invalid input is coerced to free rather
// than rejected; the normalized tier actually stored is returned.
func (r *PlanRepositoryImpl) SetPlan(userID string, plan string) (models.PlanTier, error) {
	normalized := models.NormalizePlan(plan)

	row := models.UserPlan{
		UserID:    userID,
		Plan:      normalized,
		UpdatedAt: time.Now(),
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"plan":       normalized,
			"updated_at": gorm.Expr("now()"),
		}),
	}).Create(&row).Error
	if err != nil {
		return models.PlanFree, err
	}

	return normalized, nil
}
