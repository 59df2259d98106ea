package sqlite

import (
	"context"
	"database/sql"

	"github.com/mediagrab/mediagrab/internal/storage"
	"github.com/mediagrab/mediagrab/internal/telemetry"
)

// InstrumentedTaskRepository wraps TaskRepository with telemetry.
type InstrumentedTaskRepository struct {
	repo      *TaskRepository
	telemetry *telemetry.Telemetry
}

func NewInstrumentedTaskRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedTaskRepository {
	return &InstrumentedTaskRepository{
		repo:      NewTaskRepository(dbConn),
		telemetry: tel,
	}
}

func (r *InstrumentedTaskRepository) CreateTask(ctx context.Context, userID, chatID int64, messageID int, url, platform string) (int64, error) {
	var result int64

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(ctx, "create_task", func(ctx context.Context) error {
		result, err = r.repo.CreateTask(ctx, userID, chatID, messageID, url, platform)

		return err
	})

	if instrumentedErr != nil {
		return 0, instrumentedErr
	}

	return result, nil
}

func (r *InstrumentedTaskRepository) CompleteTask(ctx context.Context, id int64, filePath string, fileSize int64) error {
	return r.telemetry.InstrumentDBOperation(ctx, "complete_task", func(ctx context.Context) error {
		return r.repo.CompleteTask(ctx, id, filePath, fileSize)
	})
}

func (r *InstrumentedTaskRepository) FailTask(ctx context.Context, id int64, errorMessage string) error {
	return r.telemetry.InstrumentDBOperation(ctx, "fail_task", func(ctx context.Context) error {
		return r.repo.FailTask(ctx, id, errorMessage)
	})
}

func (r *InstrumentedTaskRepository) GetTask(ctx context.Context, id int64) (*storage.TaskRecord, error) {
	var result *storage.TaskRecord

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(ctx, "get_task", func(ctx context.Context) error {
		result, err = r.repo.GetTask(ctx, id)

		return err
	})

	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}

func (r *InstrumentedTaskRepository) ListUserTasks(ctx context.Context, userID int64, limit int) ([]storage.TaskRecord, error) {
	var result []storage.TaskRecord

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(ctx, "list_user_tasks", func(ctx context.Context) error {
		result, err = r.repo.ListUserTasks(ctx, userID, limit)

		return err
	})

	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}

func (r *InstrumentedTaskRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var result map[string]int64

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(ctx, "count_by_status", func(ctx context.Context) error {
		result, err = r.repo.CountByStatus(ctx)

		return err
	})

	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}
