package models

import (
	"time"

	"gorm.io/gorm"
)

// User owns alerts and is the lookup target for notification addresses.
// Account management (signup, verification flows) lives outside this service;
// the monitor only ever reads users.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	FullName      string     `json:"full_name"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MigrateUserModels runs database migrations for user-related models
func MigrateUserModels(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}
