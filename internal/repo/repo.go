package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrUserExists     = errors.New("user already exists")
	ErrAlreadyRevoked = errors.New("refresh token already revoked")
)

// GormRepo implements the credential store, refresh token ledger,
// revocation registry and project store on one *gorm.DB.
type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
