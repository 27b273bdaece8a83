package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

// Users reads and writes admin accounts.
type Users struct {
	DB *gorm.DB
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (u *Users) CreateUser(ctx context.Context, email, name, password string) (*models.User, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, apperr.Internal("auth.create_user.hash", err)
	}

	user := &models.User{
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: hashedPassword,
	}
	if err := u.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperr.Internal("auth.create_user", err)
	}
	return user, nil
}

func (u *Users) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("auth.get_user", err)
	}
	return &user, nil
}

// Authenticate returns the user with the given email and password. Unknown
// emails and wrong passwords are reported the same way.
func (u *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := u.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return nil, apperr.Internal("auth.authenticate", err)
	}
	if user.PasswordHash == "" || !CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	return &user, nil
}

// CreateOrUpdateUser stores a user signed in with Google, matched by Google id.
func (u *Users) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	var existingUser models.User
	result := u.DB.WithContext(ctx).Where("google_id = ?", user.GoogleID).Limit(1).Find(&existingUser)
	if result.Error != nil {
		return apperr.Internal("auth.create_or_update_user", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := u.DB.WithContext(ctx).Create(user).Error; err != nil {
			return apperr.Internal("auth.create_or_update_user.create", err)
		}
		return nil
	}

	existingUser.Name = user.Name
	existingUser.Email = user.Email
	existingUser.Picture = user.Picture
	if err := u.DB.WithContext(ctx).Save(&existingUser).Error; err != nil {
		return apperr.Internal("auth.create_or_update_user.update", err)
	}
	*user = existingUser
	return nil
}

func (u *Users) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := u.DB.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, apperr.Internal("auth.list_users", err)
	}
	return users, nil
}
