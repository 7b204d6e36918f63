package repository

import (
	"github.com/project/task-manager-api/internal/models"
	"gorm.io/gorm"
)

// GormShareRepository is a GORM implementation of ShareRepository
type GormShareRepository struct {
	db *gorm.DB
}

// NewShareRepository creates a new ShareRepository
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &GormShareRepository{db: db}
}

// Exists reports whether a task is shared with a user
func (r *GormShareRepository) Exists(taskID, userID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.TaskShare{}).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindUsersByTask returns the users a task is shared with
func (r *GormShareRepository) FindUsersByTask(taskID uint64) ([]models.User, error) {
	var users []models.User
	err := r.db.Model(&models.User{}).
		Joins("JOIN task_shares ON task_shares.user_id = users.id").
		Where("task_shares.task_id = ?", taskID).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// FindActiveTasksSharedWith returns the active tasks shared with a user
func (r *GormShareRepository) FindActiveTasksSharedWith(userID uint64) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.Model(&models.Task{}).
		Joins("JOIN task_shares ON task_shares.task_id = tasks.id").
		Where("task_shares.user_id = ? AND tasks.is_active = ?", userID, true).
		Order("tasks.created_at DESC").
		Preload("Owner").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindUserIDsByTask returns the IDs of users a task is shared with
func (r *GormShareRepository) FindUserIDsByTask(taskID uint64) ([]uint64, error) {
	var userIDs []uint64
	err := r.db.Model(&models.TaskShare{}).
		Where("task_id = ?", taskID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// Reconcile removes and adds share rows for a task atomically. The final share
// set is fully determined by the caller's target set.
func (r *GormShareRepository) Reconcile(taskID uint64, removeUserIDs, addUserIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(removeUserIDs) > 0 {
			if err := tx.Where("task_id = ? AND user_id IN ?", taskID, removeUserIDs).
				Delete(&models.TaskShare{}).Error; err != nil {
				return err
			}
		}

		if len(addUserIDs) > 0 {
			shares := make([]models.TaskShare, len(addUserIDs))
			for i, userID := range addUserIDs {
				shares[i] = models.TaskShare{
					TaskID: taskID,
					UserID: userID,
				}
			}
			if err := tx.Create(&shares).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
