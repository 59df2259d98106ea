// Package delivery packages fetched files and hands them to the chat
// transport: single files are classified and sent natively, multi-file
// results are zipped first.
package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mediagrab/mediagrab/internal/fetch"
	"github.com/mediagrab/mediagrab/internal/logctx"
	"github.com/mediagrab/mediagrab/internal/task"
	"github.com/mediagrab/mediagrab/internal/telemetry"
)

// Messenger is the chat transport surface delivery depends on.
type Messenger interface {
	SendVideo(ctx context.Context, chatID int64, replyTo int, path, caption string) error
	SendPhoto(ctx context.Context, chatID int64, replyTo int, path, caption string) error
	SendDocument(ctx context.Context, chatID int64, replyTo int, path, caption string) error
	SendText(ctx context.Context, chatID int64, replyTo int, text string) error
}

// Error reports a failed hand-off to the transport.
type Error struct {
	TaskID int64
	Kind   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("delivery of %s for task %d failed: %v", e.Kind, e.TaskID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Packager decides how a fetch result reaches the chat.
type Packager struct {
	messenger Messenger
	telemetry *telemetry.Telemetry
}

func NewPackager(messenger Messenger, tel *telemetry.Telemetry) *Packager {
	return &Packager{messenger: messenger, telemetry: tel}
}

// Deliver sends the fetched files to the requesting chat. Zero files is a
// soft failure message, one file is sent natively by media class, more
// than one is archived first.
func (p *Packager) Deliver(ctx context.Context, d task.Descriptor, result *fetch.Result) error {
	logger := logctx.LoggerFromContext(ctx)

	files := existingFiles(result.Files)

	switch len(files) {
	case 0:
		logger.Warn("fetch produced no deliverable files")
		p.telemetry.RecordDelivery("empty", "success")

		return p.messenger.SendText(ctx, d.ChatID, d.MessageID, "The download finished but produced no files.")
	case 1:
		return p.deliverSingle(ctx, d, files[0], caption(result.Metadata))
	default:
		return p.deliverArchive(ctx, d, files)
	}
}

// NotifyFailure tells the requesting chat that the task failed.
func (p *Packager) NotifyFailure(ctx context.Context, d task.Descriptor, reason string) error {
	return p.messenger.SendText(ctx, d.ChatID, d.MessageID, "❌ Download failed: "+reason)
}

func (p *Packager) deliverSingle(ctx context.Context, d task.Descriptor, path, caption string) error {
	kind := classify(path)

	var err error

	switch kind {
	case "video":
		err = p.messenger.SendVideo(ctx, d.ChatID, d.MessageID, path, caption)
	case "image":
		err = p.messenger.SendPhoto(ctx, d.ChatID, d.MessageID, path, caption)
	default:
		err = p.messenger.SendDocument(ctx, d.ChatID, d.MessageID, path, caption)
	}

	if err != nil {
		p.telemetry.RecordDelivery(kind, "error")

		return &Error{TaskID: d.TaskID, Kind: kind, Err: err}
	}

	p.telemetry.RecordDelivery(kind, "success")

	return nil
}

func (p *Packager) deliverArchive(ctx context.Context, d task.Descriptor, files []string) error {
	logger := logctx.LoggerFromContext(ctx)

	archivePath, err := buildArchive(files)
	if err != nil {
		p.telemetry.RecordDelivery("archive", "error")

		return &Error{TaskID: d.TaskID, Kind: "archive", Err: err}
	}

	// The staged archive is transient, remove it no matter how the send went.
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove staged archive", "path", archivePath, "err", err)
		}
	}()

	if info, err := os.Stat(archivePath); err == nil {
		logger.Info("archive staged", "files", len(files), "size", humanize.Bytes(uint64(info.Size())))
	}

	caption := fmt.Sprintf("%d files", len(files))
	if err := p.messenger.SendDocument(ctx, d.ChatID, d.MessageID, archivePath, caption); err != nil {
		p.telemetry.RecordDelivery("archive", "error")

		return &Error{TaskID: d.TaskID, Kind: "archive", Err: err}
	}

	p.telemetry.RecordDelivery("archive", "success")

	return nil
}

// classify buckets a file into video, image or document by extension.
func classify(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case videoExtensions[ext]:
		return "video"
	case imageExtensions[ext]:
		return "image"
	default:
		return "document"
	}
}

// caption picks the user-visible caption from fetch metadata.
func caption(metadata map[string]string) string {
	if metadata == nil {
		return ""
	}

	if title := metadata["title"]; title != "" {
		return title
	}

	return metadata["caption"]
}

func existingFiles(files []string) []string {
	var out []string

	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			out = append(out, f)
		}
	}

	return out
}
