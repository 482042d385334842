package models

import (
	"strings"
	"time"
)

// PlanTier is the user's billing level. It determines the base token cap and
// the accounting period granularity (free: ISO week, pro: calendar month).
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
)

// NormalizePlan coerces arbitrary input to a valid tier. Anything other than
// "free"/"pro" (case-insensitive) becomes free rather than an error.
func NormalizePlan(s string) PlanTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PlanPro):
		return PlanPro
	default:
		return PlanFree
	}
}

// UserPlan is the authoritative billing tier per user. Exactly one row per
// user; absence means free. Mutated only through the admin trust boundary.
type UserPlan struct {
	UserID    string    `gorm:"type:uuid;primaryKey"`
	Plan      PlanTier  `gorm:"type:varchar(20);not null;default:'free'"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserPlan) TableName() string {
	return "user_plans"
}
