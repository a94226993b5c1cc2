package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"taskhub/internal/http-api/models"
	"taskhub/internal/http-api/repository"
)

// MockTaskRepository mocks the TaskRepository interface
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id, userID string) (*models.Task, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, userID string, filter repository.TaskFilter) ([]models.Task, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Task), args.Get(1).(int64), args.Error(2)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func TestCreateTask_DefaultsToPending(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	svc := NewTaskService(mockRepo, nil) // nil cache is a valid no-op

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Task")).Return(nil)

	task, err := svc.Create(context.Background(), "user-id", "buy milk", "", "")

	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, "user-id", task.UserID)
	mockRepo.AssertExpectations(t)
}

func TestCreateTask_InvalidStatus(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	svc := NewTaskService(mockRepo, nil)

	task, err := svc.Create(context.Background(), "user-id", "buy milk", "", "archived")

	assert.Equal(t, ErrInvalidTaskStatus, err)
	assert.Nil(t, task)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateTask_PartialUpdate(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	svc := NewTaskService(mockRepo, nil)

	existing := &models.Task{
		ID:          "task-id",
		Title:       "buy milk",
		Description: "2 liters",
		Status:      models.TaskStatusPending,
		UserID:      "user-id",
	}
	mockRepo.On("FindByID", mock.Anything, "task-id", "user-id").Return(existing, nil)
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Task")).Return(nil)

	newTitle := "buy oat milk"
	task, err := svc.Update(context.Background(), "task-id", "user-id", UpdateTaskInput{Title: &newTitle})

	assert.NoError(t, err)
	assert.Equal(t, "buy oat milk", task.Title)
	// Omitted fields are untouched
	assert.Equal(t, "2 liters", task.Description)
	assert.Equal(t, models.TaskStatusPending, task.Status)
}

func TestUpdateTask_NotFound(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	svc := NewTaskService(mockRepo, nil)

	mockRepo.On("FindByID", mock.Anything, "missing", "user-id").Return(nil, gorm.ErrRecordNotFound)

	task, err := svc.Update(context.Background(), "missing", "user-id", UpdateTaskInput{})

	assert.Equal(t, ErrTaskNotFound, err)
	assert.Nil(t, task)
}

func TestToggleTask(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	svc := NewTaskService(mockRepo, nil)

	existing := &models.Task{
		ID:     "task-id",
		Status: models.TaskStatusPending,
		UserID: "user-id",
	}
	mockRepo.On("FindByID", mock.Anything, "task-id", "user-id").Return(existing, nil)
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Task")).Return(nil)

	task, err := svc.Toggle(context.Background(), "task-id", "user-id")
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)

	task, err = svc.Toggle(context.Background(), "task-id", "user-id")
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
}

func TestDeleteTask_NotFound(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	svc := NewTaskService(mockRepo, nil)

	mockRepo.On("Delete", mock.Anything, "missing", "user-id").Return(gorm.ErrRecordNotFound)

	err := svc.Delete(context.Background(), "missing", "user-id")

	assert.Equal(t, ErrTaskNotFound, err)
}

func TestListTasks_PassesFilter(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	svc := NewTaskService(mockRepo, nil)

	filter := repository.TaskFilter{Status: "pending", Search: "milk", Page: 2, Limit: 5}
	mockRepo.On("List", mock.Anything, "user-id", filter).
		Return([]models.Task{{ID: "task-id"}}, int64(6), nil)

	tasks, total, err := svc.List(context.Background(), "user-id", filter)

	assert.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, int64(6), total)
	mockRepo.AssertExpectations(t)
}
