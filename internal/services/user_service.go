package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/project/task-manager-api/internal/constants"
	"github.com/project/task-manager-api/internal/models"
	"github.com/project/task-manager-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrNotAccountOwner = errors.New("only the account owner can perform this action")
	ErrImageRequired   = errors.New("an image is required")
	ErrImageNotBase64  = errors.New("image must be base64 encoded")
)

// UserService handles user profile business logic.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// ListUsers returns all users.
func (s *UserService) ListUsers() ([]models.User, error) {
	users, err := s.userRepo.FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUserInput represents input for updating a user profile. The full
// mutable field set is always replaced.
type UpdateUserInput struct {
	Username    string
	DisplayName string
	Password    string
}

// UpdateUser replaces a user's profile fields. Only the account owner may
// update their own record.
func (s *UserService) UpdateUser(actorID, id uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.ID != actorID {
		return nil, ErrNotAccountOwner
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	if username != user.Username {
		if _, err := s.userRepo.FindByUsername(username); err == nil {
			return nil, ErrUsernameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}

	user.Username = username
	user.DisplayName = input.DisplayName

	if input.Password != "" {
		if len(input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		if len(input.Password) > constants.MaxPasswordLength {
			return nil, ErrPasswordTooLong
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, ErrFailedToHashPassword
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// SoftDeleteUser deactivates an account. The record is kept; the active flag
// alone makes the user non-authenticatable.
func (s *UserService) SoftDeleteUser(actorID, id uint64) error {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.ID != actorID {
		return ErrNotAccountOwner
	}

	user.IsActive = false

	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	return nil
}

// SaveProfilePicture stores a base64-encoded profile image on the user record.
func (s *UserService) SaveProfilePicture(id uint64, image string) error {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if image == "" {
		return ErrImageRequired
	}
	if _, err := base64.StdEncoding.DecodeString(image); err != nil {
		return ErrImageNotBase64
	}

	user.ProfilePicture = image

	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to save profile picture: %w", err)
	}

	return nil
}
