package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Alert type constants
const (
	AlertTypeBelow = "below"
	AlertTypeAbove = "above"
)

// Email log status constants
const (
	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// Price check status constants
const (
	PriceCheckSuccess = "success"
	PriceCheckFailed  = "failed"
)

// Alert represents a user's standing instruction to be notified when a
// symbol's price crosses a threshold in a given direction. Once triggered
// the alert is terminal: it is never re-evaluated and never re-triggered.
type Alert struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	UserID         uint                `gorm:"index;not null" json:"user_id"`
	User           User                `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Symbol         string              `gorm:"index;not null" json:"symbol"` // normalized uppercase ticker
	StockName      string              `json:"stock_name"`
	AlertType      string              `gorm:"not null" json:"alert_type"` // below, above
	TargetPrice    decimal.Decimal     `gorm:"type:decimal(15,4);not null" json:"target_price"`
	IsTriggered    bool                `gorm:"default:false;index" json:"is_triggered"`
	TriggeredAt    *time.Time          `json:"triggered_at"`
	TriggeredPrice decimal.NullDecimal `gorm:"type:decimal(15,4)" json:"triggered_price"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// EmailLog records one delivery attempt sequence for a triggered alert.
// A row is created as pending before the send and updated with the outcome.
type EmailLog struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AlertID       *uint      `gorm:"index" json:"alert_id"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	EmailType     string     `gorm:"not null" json:"email_type"` // alert
	Status        string     `gorm:"not null" json:"status"`     // pending, sent, failed
	Attempts      int        `gorm:"default:0" json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	ErrorMessage  string     `json:"error_message"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PriceCheckLog is an append-only record of one quote fetch attempt for one
// symbol in one cycle. Rows are never updated.
type PriceCheckLog struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	Symbol       string              `gorm:"index;not null" json:"symbol"`
	Status       string              `gorm:"not null" json:"status"` // success, failed
	Price        decimal.NullDecimal `gorm:"type:decimal(15,4)" json:"price"`
	Source       string              `json:"source"`
	ErrorMessage string              `json:"error_message"`
	CheckedAt    time.Time           `gorm:"autoCreateTime" json:"checked_at"`
}

// Email type constants
const (
	EmailTypeAlert = "alert"
)

// ValidAlertTypes returns valid alert directions
func ValidAlertTypes() []string {
	return []string{AlertTypeBelow, AlertTypeAbove}
}

// IsValidAlertType checks if the alert direction is valid
func IsValidAlertType(alertType string) bool {
	for _, valid := range ValidAlertTypes() {
		if alertType == valid {
			return true
		}
	}
	return false
}

// MigrateAlertModels runs database migrations for alert-related models
func MigrateAlertModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Alert{},
		&EmailLog{},
		&PriceCheckLog{},
	)
}
