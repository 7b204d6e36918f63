package repository

import (
	"github.com/project/task-manager-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindAll returns all users
	FindAll() ([]models.User, error)

	// Update persists changes to a user
	Update(user *models.User) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// FindActiveByOwner returns the active tasks owned by a user
	FindActiveByOwner(ownerID uint64) ([]models.Task, error)

	// Update persists changes to a task
	Update(task *models.Task) error
}

// ShareRepository defines the interface for task share data access
type ShareRepository interface {
	// Exists reports whether a task is shared with a user
	Exists(taskID, userID uint64) (bool, error)

	// FindUsersByTask returns the users a task is shared with
	FindUsersByTask(taskID uint64) ([]models.User, error)

	// FindActiveTasksSharedWith returns the active tasks shared with a user
	FindActiveTasksSharedWith(userID uint64) ([]models.Task, error)

	// FindUserIDsByTask returns the IDs of users a task is shared with
	FindUserIDsByTask(taskID uint64) ([]uint64, error)

	// Reconcile removes and adds share rows for a task within a single transaction
	Reconcile(taskID uint64, removeUserIDs, addUserIDs []uint64) error
}
