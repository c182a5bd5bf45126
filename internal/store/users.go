package store

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"barmap/internal/models"
)

// Users persists accounts allowed to use the admin API.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// NormalizeEmail trims and lowercases an address. Emails are stored and
// looked up in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Users) Create(ctx context.Context, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

// EnsureAdmin creates the admin account if no user has that email yet.
// passwordHash must already be a bcrypt hash.
func (s *Users) EnsureAdmin(ctx context.Context, email, passwordHash string) error {
	_, err := s.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	admin := models.User{Name: "admin", Email: email, Password: passwordHash, Role: models.RoleAdmin}
	if err := s.Create(ctx, &admin); err != nil {
		return err
	}
	logrus.WithField("email", admin.Email).Info("Admin account created")
	return nil
}
