package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mediagrab/mediagrab/internal/storage"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(dbConn *sql.DB) *TaskRepository {
	return &TaskRepository{db: dbConn}
}

func (r *TaskRepository) CreateTask(ctx context.Context, userID, chatID int64, messageID int, url, platform string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, chat_id, message_id, url, platform, status, created_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?)
	`, userID, chatID, messageID, url, platform, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read task id: %w", err)
	}

	return id, nil
}

func (r *TaskRepository) CompleteTask(ctx context.Context, id int64, filePath string, fileSize int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'completed', file_path = ?, file_size = ?, completed_at = ?
		WHERE id = ?
	`, filePath, fileSize, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	return requireRow(res)
}

// FailTask marks a pending task failed. Tasks that already reached a
// terminal status are left untouched and reported as ErrNotFound.
func (r *TaskRepository) FailTask(ctx context.Context, id int64, errorMessage string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'failed', error_message = ?, completed_at = ?
		WHERE id = ? AND status = 'pending'
	`, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark task failed: %w", err)
	}

	return requireRow(res)
}

func (r *TaskRepository) GetTask(ctx context.Context, id int64) (*storage.TaskRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, chat_id, message_id, url, platform, status,
		       file_path, file_size, error_message, created_at, completed_at
		FROM tasks WHERE id = ?
	`, id)

	record, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return record, nil
}

func (r *TaskRepository) ListUserTasks(ctx context.Context, userID int64, limit int) ([]storage.TaskRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, chat_id, message_id, url, platform, status,
		       file_path, file_size, error_message, created_at, completed_at
		FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []storage.TaskRecord

	for rows.Next() {
		record, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		tasks = append(tasks, *record)
	}

	return tasks, rows.Err()
}

func (r *TaskRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)

	for rows.Next() {
		var status string

		var count int64

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}

		counts[status] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*storage.TaskRecord, error) {
	var record storage.TaskRecord

	var completedAt sql.NullTime

	err := row.Scan(
		&record.ID, &record.UserID, &record.ChatID, &record.MessageID,
		&record.URL, &record.Platform, &record.Status,
		&record.FilePath, &record.FileSize, &record.ErrorMessage,
		&record.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}

	return &record, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}
