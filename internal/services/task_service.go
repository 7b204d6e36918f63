package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/project/task-manager-api/internal/models"
	"github.com/project/task-manager-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrNotTaskOwner      = errors.New("only the task owner can perform this action")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// TaskService handles task business logic: creation, ownership-gated mutation,
// and the sharing relation.
type TaskService struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	shareRepo repository.ShareRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, shareRepo repository.ShareRepository) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		shareRepo: shareRepo,
	}
}

// FindAccessibleTask returns the task iff it exists and the actor is its owner
// or a member of its share set. Forbidden collapses into not-found so task
// existence never leaks to non-authorized users.
func (s *TaskService) FindAccessibleTask(taskID, actorID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Owner")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.OwnerID == actorID {
		return task, nil
	}

	shared, err := s.shareRepo.Exists(taskID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check share: %w", err)
	}
	if !shared {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

// ListAccessibleTasks returns the union of active tasks owned by the actor and
// active tasks shared with them, deduplicated by task ID.
func (s *TaskService) ListAccessibleTasks(actorID uint64) ([]models.Task, error) {
	owned, err := s.taskRepo.FindActiveByOwner(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned tasks: %w", err)
	}

	shared, err := s.shareRepo.FindActiveTasksSharedWith(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared tasks: %w", err)
	}

	seen := make(map[uint64]struct{}, len(owned)+len(shared))
	tasks := make([]models.Task, 0, len(owned)+len(shared))
	for _, task := range append(owned, shared...) {
		if _, exists := seen[task.ID]; exists {
			continue
		}
		seen[task.ID] = struct{}{}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// CreateTask creates a new active task owned by the actor. Any authenticated
// user may create tasks. The optional share list is resolved before the task
// row is written, so an unknown username fails the whole create and nothing
// persists.
func (s *TaskService) CreateTask(actorID uint64, draft models.Task, shareWith []string) (*models.Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, ErrTitleRequired
	}

	if draft.Status == "" {
		draft.Status = models.TaskStatusTodo
	}
	if !draft.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}

	target, err := s.resolveShareSet(actorID, shareWith)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		Deadline:    draft.Deadline,
		IsActive:    true,
		OwnerID:     actorID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if len(target) > 0 {
		addIDs := make([]uint64, 0, len(target))
		for id := range target {
			addIDs = append(addIDs, id)
		}
		if err := s.shareRepo.Reconcile(task.ID, nil, addIDs); err != nil {
			return nil, fmt.Errorf("failed to share task: %w", err)
		}
	}

	return s.taskRepo.FindByID(task.ID, "Owner")
}

// UpdateTask overwrites a task's mutable fields. Partial updates are not
// supported: the full mutable field set is always replaced. The ID and owner
// are immutable; only the owner may update.
func (s *TaskService) UpdateTask(actorID, taskID uint64, update models.Task) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.OwnerID != actorID {
		return nil, ErrNotTaskOwner
	}

	if strings.TrimSpace(update.Title) == "" {
		return nil, ErrTitleRequired
	}
	if update.Status == "" {
		update.Status = models.TaskStatusTodo
	}
	if !update.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}

	task.Title = update.Title
	task.Description = update.Description
	task.Status = update.Status
	task.Deadline = update.Deadline

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Owner")
}

// SoftDeleteTask marks a task inactive. The row is kept for lookup by ID but
// disappears from list views. Only the owner may delete.
func (s *TaskService) SoftDeleteTask(actorID, taskID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.OwnerID != actorID {
		return ErrNotTaskOwner
	}

	task.IsActive = false

	if err := s.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// ReconcileShares replaces a task's share set with the users named in
// usernames. Members not in the target set are un-shared, new members are
// added, and the owner's own name is silently skipped. The final state is
// fully determined by the target set.
func (s *TaskService) ReconcileShares(actorID, taskID uint64, usernames []string) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.OwnerID != actorID {
		return ErrNotTaskOwner
	}

	target, err := s.resolveShareSet(task.OwnerID, usernames)
	if err != nil {
		return err
	}

	currentIDs, err := s.shareRepo.FindUserIDsByTask(taskID)
	if err != nil {
		return fmt.Errorf("failed to load current shares: %w", err)
	}

	current := make(map[uint64]struct{}, len(currentIDs))
	removeIDs := make([]uint64, 0)
	for _, id := range currentIDs {
		current[id] = struct{}{}
		if _, keep := target[id]; !keep {
			removeIDs = append(removeIDs, id)
		}
	}

	addIDs := make([]uint64, 0)
	for id := range target {
		if _, exists := current[id]; !exists {
			addIDs = append(addIDs, id)
		}
	}

	if err := s.shareRepo.Reconcile(taskID, removeIDs, addIDs); err != nil {
		return fmt.Errorf("failed to reconcile shares: %w", err)
	}

	return nil
}

// resolveShareSet maps share usernames to user IDs. Blank names and duplicates
// are dropped, the owner is silently skipped, and any unknown name fails the
// whole resolution.
func (s *TaskService) resolveShareSet(ownerID uint64, usernames []string) (map[uint64]struct{}, error) {
	target := make(map[uint64]struct{}, len(usernames))
	for _, username := range usernames {
		username = strings.TrimSpace(username)
		if username == "" {
			continue
		}

		user, err := s.userRepo.FindByUsername(username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
			}
			return nil, fmt.Errorf("failed to find user %s: %w", username, err)
		}

		// The owner is never a member of their own task's share set.
		if user.ID == ownerID {
			continue
		}

		target[user.ID] = struct{}{}
	}

	return target, nil
}

// ListSharedUsers returns the users a task is shared with. The share list is
// only exposed to users who can access the task itself.
func (s *TaskService) ListSharedUsers(taskID, actorID uint64) ([]models.User, error) {
	if _, err := s.FindAccessibleTask(taskID, actorID); err != nil {
		return nil, err
	}

	users, err := s.shareRepo.FindUsersByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared users: %w", err)
	}

	return users, nil
}
