package store

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", conflict(err))
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) AdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var a models.AdminUser
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// UpsertAdmin creates the admin or replaces its password hash.
func (s *Store) UpsertAdmin(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var a models.AdminUser
	err := s.db.WithContext(ctx).
		Where(models.AdminUser{Email: email}).
		Attrs(models.AdminUser{PasswordHash: passwordHash}).
		FirstOrCreate(&a).Error
	if err != nil {
		return fmt.Errorf("failed to find/create admin: %w", err)
	}
	if a.PasswordHash == passwordHash {
		return nil
	}
	return s.db.WithContext(ctx).Model(&a).Update("password_hash", passwordHash).Error
}
