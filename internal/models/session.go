package models

import (
	"time"
)

// Session binds a browser session id to the bearer token and role name
// returned by the backend at login.
type Session struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Token     string    `json:"-" gorm:"type:text;not null"`
	RoleName  string    `json:"role_name" gorm:"type:varchar(50);not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginAttempt counts consecutive failed logins from one browser.
type LoginAttempt struct {
	AttemptKey string    `json:"attempt_key" gorm:"type:varchar(36);primaryKey"`
	Failures   int       `json:"failures" gorm:"not null;default:0"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"index"`
}

type AuditLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Actor      string    `json:"actor" gorm:"type:varchar(255);index"`
	RoleName   string    `json:"role_name" gorm:"type:varchar(50)"`
	Action     string    `json:"action" gorm:"type:varchar(50);not null"` // login, logout, create, update, delete
	Resource   string    `json:"resource" gorm:"type:varchar(100)"`       // cars, access-codes, ...
	ResourceID string    `json:"resource_id" gorm:"type:varchar(255)"`
	IPAddress  string    `json:"ip_address" gorm:"type:varchar(45)"`
	UserAgent  string    `json:"user_agent" gorm:"type:varchar(500)"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}
