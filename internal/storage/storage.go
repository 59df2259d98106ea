package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// TaskRecord is the persisted shape of a download task.
type TaskRecord struct {
	ID           int64
	UserID       int64
	ChatID       int64
	MessageID    int
	URL          string
	Platform     string
	Status       string
	FilePath     string
	FileSize     int64
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// UserRecord mirrors the users table.
type UserRecord struct {
	ID        int64
	Username  string
	FirstName string
	Banned    bool
	CreatedAt time.Time
}

type TaskRepository interface {
	CreateTask(ctx context.Context, userID, chatID int64, messageID int, url, platform string) (int64, error)
	CompleteTask(ctx context.Context, id int64, filePath string, fileSize int64) error
	FailTask(ctx context.Context, id int64, errorMessage string) error
	GetTask(ctx context.Context, id int64) (*TaskRecord, error)
	ListUserTasks(ctx context.Context, userID int64, limit int) ([]TaskRecord, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type UserRepository interface {
	UpsertUser(ctx context.Context, id int64, username, firstName string) error
	SetBanned(ctx context.Context, id int64, banned bool) error
	IsBanned(ctx context.Context, id int64) (bool, error)
}
