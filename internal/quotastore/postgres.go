package quotastore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nativeai_backend/internal/models"
)

// PostgresStore keeps the counters in the relational database. Atomicity of
// the add operations is delegated to a single INSERT ... ON CONFLICT DO
// UPDATE statement, so two completions landing at the same instant for the
// same (user, period) are both reflected in the final total.
type PostgresStore struct {
	db *gorm.DB
}

var _ CounterStore = (*PostgresStore)(nil)

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetUsed(ctx context.Context, userID, period string) (int64, error) {
	var row models.PeriodUsage
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND period = ?", userID, period).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.TokensUsed, nil
}

func (s *PostgresStore) AddUsed(ctx context.Context, userID, period string, tokens int64) (int64, error) {
	row := models.PeriodUsage{
		UserID:     userID,
		Period:     period,
		TokensUsed: clampTokens(tokens),
	}

	err := s.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "period"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"tokens_used": gorm.Expr("period_usage.tokens_used + EXCLUDED.tokens_used"),
					"updated_at":  gorm.Expr("now()"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "tokens_used"}}},
		).
		Create(&row).Error
	if err != nil {
		return 0, err
	}
	return row.TokensUsed, nil
}

func (s *PostgresStore) GetAllowance(ctx context.Context, userID, period string) (int64, error) {
	var row models.PeriodAllowance
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND period = ?", userID, period).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.TokensAdded, nil
}

func (s *PostgresStore) AddAllowance(ctx context.Context, userID, period string, tokens int64) (int64, error) {
	row := models.PeriodAllowance{
		UserID:      userID,
		Period:      period,
		TokensAdded: clampTokens(tokens),
	}

	err := s.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "period"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"tokens_added": gorm.Expr("period_allowances.tokens_added + EXCLUDED.tokens_added"),
					"updated_at":   gorm.Expr("now()"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "tokens_added"}}},
		).
		Create(&row).Error
	if err != nil {
		return 0, err
	}
	return row.TokensAdded, nil
}
