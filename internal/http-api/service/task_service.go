package service

import (
	"context"
	"errors"
	"fmt"

	"taskhub/internal/http-api/models"
	"taskhub/internal/http-api/repository"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// UpdateTaskInput carries a partial update; nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
}

type TaskService interface {
	Create(ctx context.Context, userID, title, description, status string) (*models.Task, error)
	Get(ctx context.Context, id, userID string) (*models.Task, error)
	List(ctx context.Context, userID string, filter repository.TaskFilter) ([]models.Task, int64, error)
	Update(ctx context.Context, id, userID string, input UpdateTaskInput) (*models.Task, error)
	Delete(ctx context.Context, id, userID string) error
	Toggle(ctx context.Context, id, userID string) (*models.Task, error)
}

type taskService struct {
	repo  repository.TaskRepository
	cache *TaskCache
}

func NewTaskService(repo repository.TaskRepository, cache *TaskCache) TaskService {
	return &taskService{repo: repo, cache: cache}
}

func (s *taskService) Create(ctx context.Context, userID, title, description, status string) (*models.Task, error) {
	if status == "" {
		status = models.TaskStatusPending
	}
	if !validStatus(status) {
		return nil, ErrInvalidTaskStatus
	}

	task := &models.Task{
		Title:       title,
		Description: description,
		Status:      status,
		UserID:      userID,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, userID)
	return task, nil
}

func (s *taskService) Get(ctx context.Context, id, userID string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, userID string, filter repository.TaskFilter) ([]models.Task, int64, error) {
	querySig := fmt.Sprintf("%s|%s|%d|%d", filter.Status, filter.Search, filter.Page, filter.Limit)
	if tasks, total, ok := s.cache.GetList(ctx, userID, querySig); ok {
		return tasks, total, nil
	}

	tasks, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, 0, err
	}

	s.cache.SetList(ctx, userID, querySig, tasks, total)
	return tasks, total, nil
}

func (s *taskService) Update(ctx context.Context, id, userID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, ErrTaskNotFound
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, userID)
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return ErrTaskNotFound
	}

	s.cache.Invalidate(ctx, userID)
	return nil
}

// Toggle flips a task between completed and pending.
func (s *taskService) Toggle(ctx context.Context, id, userID string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, ErrTaskNotFound
	}

	if task.Status == models.TaskStatusCompleted {
		task.Status = models.TaskStatusPending
	} else {
		task.Status = models.TaskStatusCompleted
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, userID)
	return task, nil
}

func validStatus(status string) bool {
	return status == models.TaskStatusPending || status == models.TaskStatusCompleted
}
