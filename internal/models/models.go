package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) IsAdmin() bool { return r == RoleAdmin }

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"          json:"id"`
	Email        string    `gorm:"size:320;uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                          json:"-"`
	Role         Role      `gorm:"size:16;not null"                  json:"role"`
	Enabled      bool      `gorm:"not null"                          json:"enabled"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false"     json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime:false"     json:"updated_at"`
}

// RefreshToken stores only the SHA-256 hex digest of the raw opaque token.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"          json:"id"`
	UserID    uint       `gorm:"index;not null"                    json:"user_id"`
	User      User       `gorm:"constraint:OnDelete:CASCADE"       json:"-"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null"      json:"-"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime:false"     json:"created_at"`
	ExpiresAt time.Time  `gorm:"index;not null"                    json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// RevokedToken blacklists an access token by jti until ExpiresAt.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"                 json:"jti"`
	UserID    uint      `gorm:"index;not null"                     json:"user_id"`
	RevokedAt time.Time `gorm:"not null"                           json:"revoked_at"`
	ExpiresAt time.Time `gorm:"index;not null"                     json:"expires_at"`
}

type Project struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"        json:"id"`
	UserID      uint       `gorm:"index;not null"                  json:"owner_id"`
	User        User       `gorm:"constraint:OnDelete:RESTRICT"    json:"-"`
	Name        string     `gorm:"size:120;not null"               json:"name"`
	Description string     `gorm:"size:500;not null"               json:"description"`
	Value       float64    `gorm:"not null;default:0"              json:"value"`
	Active      bool       `gorm:"not null"                        json:"active"`
	StartDate   time.Time  `gorm:"not null"                        json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"   json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false"   json:"updated_at"`
	DeletedAt   *time.Time `gorm:"index"                           json:"-"`
}
