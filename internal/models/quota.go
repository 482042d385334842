package models

import "time"

// PeriodUsage is the cumulative token consumption of one user in one
// accounting period. tokens_used only grows within a period; a new period
// starts a fresh counter by virtue of a new period key. Rows are retained
// for historical reporting.
type PeriodUsage struct {
	UserID     string    `gorm:"type:uuid;primaryKey"`
	Period     string    `gorm:"type:varchar(16);primaryKey"`
	TokensUsed int64     `gorm:"not null;default:0"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (PeriodUsage) TableName() string {
	return "period_usage"
}

// PeriodAllowance is a top-up grant of bonus tokens for one user in one
// period, layered on top of the plan's base cap. tokens_added only grows,
// via additive grants from the admin trust boundary.
type PeriodAllowance struct {
	UserID      string    `gorm:"type:uuid;primaryKey"`
	Period      string    `gorm:"type:varchar(16);primaryKey"`
	TokensAdded int64     `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (PeriodAllowance) TableName() string {
	return "period_allowances"
}
