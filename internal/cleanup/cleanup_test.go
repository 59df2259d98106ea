package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func taskDirWithFile(t *testing.T, root string, userID, taskID string) string {
	t.Helper()

	dir := filepath.Join(root, userID, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "media.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	return dir
}

func TestSchedule_RemovesDirectoryAfterDelay(t *testing.T) {
	root := t.TempDir()
	dir := taskDirWithFile(t, root, "42", "1")

	s := NewScheduler(context.Background(), root, 20*time.Millisecond)
	sc := s.Schedule(42, 1)

	if _, err := os.Stat(dir); err != nil {
		t.Fatal("directory removed before the delay elapsed")
	}

	select {
	case <-sc.Done():
	case <-time.After(time.Second):
		t.Fatal("cleanup never fired")
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory still exists after cleanup")
	}
}

func TestSchedule_CancelKeepsDirectory(t *testing.T) {
	root := t.TempDir()
	dir := taskDirWithFile(t, root, "42", "2")

	s := NewScheduler(context.Background(), root, 20*time.Millisecond)
	sc := s.Schedule(42, 2)

	if !sc.Cancel() {
		t.Fatal("cancel reported timer already fired")
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := os.Stat(dir); err != nil {
		t.Error("cancelled cleanup still removed the directory")
	}
}

func TestSchedule_MissingDirectoryIsFine(t *testing.T) {
	s := NewScheduler(context.Background(), t.TempDir(), time.Millisecond)
	sc := s.Schedule(1, 99)

	select {
	case <-sc.Done():
	case <-time.After(time.Second):
		t.Fatal("cleanup never fired")
	}
}

func TestSchedule_RescheduleResetsTimer(t *testing.T) {
	root := t.TempDir()
	taskDirWithFile(t, root, "7", "3")

	s := NewScheduler(context.Background(), root, 50*time.Millisecond)
	s.Schedule(7, 3)
	sc := s.Schedule(7, 3)

	select {
	case <-sc.Done():
	case <-time.After(time.Second):
		t.Fatal("rescheduled cleanup never fired")
	}
}

func TestPurgeExpired(t *testing.T) {
	root := t.TempDir()
	oldDir := taskDirWithFile(t, root, "1", "10")
	freshDir := taskDirWithFile(t, root, "1", "11")

	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(context.Background(), root, time.Hour)
	if err := s.PurgeExpired(context.Background()); err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}

	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("expired directory not removed")
	}

	if _, err := os.Stat(freshDir); err != nil {
		t.Error("fresh directory wrongly removed")
	}
}

func TestPurgeExpired_MissingRoot(t *testing.T) {
	s := NewScheduler(context.Background(), filepath.Join(t.TempDir(), "nope"), time.Hour)
	if err := s.PurgeExpired(context.Background()); err != nil {
		t.Fatalf("PurgeExpired on missing root: %v", err)
	}
}
