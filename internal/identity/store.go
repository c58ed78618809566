package identity

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Account struct {
	ID          string `gorm:"primaryKey"`
	DisplayName string
	Role        string
	Active      bool
}

type AccessToken struct {
	Token     string `gorm:"primaryKey"`
	AccountID string
	ExpiresAt time.Time
	Account   Account `gorm:"foreignKey:AccountID"`
}

// Store resolves credentials against the accounts/access_tokens tables owned
// by the CRUD backend.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Account{}, &AccessToken{})
}

func (s *Store) Resolve(ctx context.Context, credential string) (Identity, error) {
	var tok AccessToken
	err := s.db.WithContext(ctx).Preload("Account").First(&tok, "token = ?", credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrNoIdentity
	}
	if err != nil {
		return Identity{}, err
	}
	if time.Now().After(tok.ExpiresAt) || !tok.Account.Active {
		return Identity{}, ErrNoIdentity
	}
	return Identity{
		ID:          tok.Account.ID,
		DisplayName: tok.Account.DisplayName,
		Role:        Role(tok.Account.Role),
	}, nil
}
