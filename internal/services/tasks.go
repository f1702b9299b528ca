package services

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

type TaskService struct {
	client *api.Client
}

func NewTaskService(client *api.Client) *TaskService {
	return &TaskService{client: client}
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

// ListTasks returns the tasks of the authenticated user; statuses are
// already canonical.
func (s *TaskService) ListTasks(ctx context.Context) ([]models.Task, error) {
	var raw json.RawMessage
	if err := s.client.Get(ctx, "/tasks", &raw); err != nil {
		return nil, err
	}

	tasks := []models.Task{}
	if err := api.DecodeList(raw, "tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var raw json.RawMessage
	if err := s.client.Get(ctx, taskPath(id), &raw); err != nil {
		return nil, err
	}

	var task models.Task
	found, err := api.DecodeObject(raw, "task", &task)
	if err != nil {
		return nil, err
	}
	if !found {
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, err
		}
	}
	if task.ID == "" {
		task.ID = id
	}
	return &task, nil
}

// CreateTask returns the created task. When the response carries no task the
// result has the submitted fields and an empty id.
func (s *TaskService) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	var raw json.RawMessage
	if err := s.client.Post(ctx, "/tasks", in, &raw); err != nil {
		return nil, err
	}
	return decodeTask(raw, in, "")
}

// UpdateTask falls back to the submitted fields plus id when the response
// carries no task.
func (s *TaskService) UpdateTask(ctx context.Context, id string, in models.TaskInput) (*models.Task, error) {
	var raw json.RawMessage
	if err := s.client.Put(ctx, taskPath(id), in, &raw); err != nil {
		return nil, err
	}
	return decodeTask(raw, in, id)
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	return s.client.Delete(ctx, taskPath(id), nil)
}

func decodeTask(raw json.RawMessage, in models.TaskInput, id string) (*models.Task, error) {
	var task models.Task
	found, err := api.DecodeObject(raw, "task", &task)
	if err != nil {
		return nil, err
	}
	if !found {
		task = in.Task(id)
	}
	if task.ID == "" {
		task.ID = id
	}
	return &task, nil
}
