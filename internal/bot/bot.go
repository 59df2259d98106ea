// Package bot is the Telegram transport: it turns incoming messages into
// queued download tasks and answers the command surface.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediagrab/mediagrab/internal/logctx"
	"github.com/mediagrab/mediagrab/internal/platform"
	"github.com/mediagrab/mediagrab/internal/storage"
	"github.com/mediagrab/mediagrab/internal/task"
	"github.com/mediagrab/mediagrab/internal/telemetry"
)

const updateTimeoutSeconds = 30

// Enqueuer accepts task descriptors for asynchronous execution.
type Enqueuer interface {
	Enqueue(d task.Descriptor)
}

// AdminChecker answers whether a user id may run admin commands.
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

type Bot struct {
	api       *tgbotapi.BotAPI
	tasks     storage.TaskRepository
	users     storage.UserRepository
	queue     Enqueuer
	admins    AdminChecker
	telemetry *telemetry.Telemetry
}

func New(
	api *tgbotapi.BotAPI,
	tasks storage.TaskRepository,
	users storage.UserRepository,
	queue Enqueuer,
	admins AdminChecker,
	tel *telemetry.Telemetry,
) *Bot {
	return &Bot{
		api:       api,
		tasks:     tasks,
		users:     users,
		queue:     queue,
		admins:    admins,
		telemetry: tel,
	}
}

// Run consumes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	logger := logctx.LoggerFromContext(ctx)
	logger.Info("bot started", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			logger.Info("bot stopped")

			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			if update.Message == nil {
				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	ctx = logctx.With(ctx, "user_id", msg.From.ID, "chat_id", msg.Chat.ID)
	logger := logctx.LoggerFromContext(ctx)

	if err := b.users.UpsertUser(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName); err != nil {
		logger.Error("failed to upsert user", "err", err)
	}

	banned, err := b.users.IsBanned(ctx, msg.From.ID)
	if err != nil {
		logger.Error("failed to check ban status", "err", err)
	}

	if banned {
		logger.Warn("ignoring message from banned user")

		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)

		return
	}

	b.handleDownloadRequest(ctx, msg)
}

func (b *Bot) handleDownloadRequest(ctx context.Context, msg *tgbotapi.Message) {
	logger := logctx.LoggerFromContext(ctx)

	candidates := platform.ExtractAll(msg.Text)
	if len(candidates) == 0 {
		// Only nag in direct chats; groups see plenty of plain text.
		if msg.Chat.IsPrivate() && strings.TrimSpace(msg.Text) != "" {
			b.reply(ctx, msg.Chat.ID, msg.MessageID, "No supported links found. Send me a video or post URL.")
		}

		return
	}

	queued := 0

	for _, c := range candidates {
		taskID, err := b.tasks.CreateTask(ctx, msg.From.ID, msg.Chat.ID, msg.MessageID, c.URL, string(c.Platform))
		if err != nil {
			logger.Error("failed to create task", "url", c.URL, "err", err)

			continue
		}

		b.queue.Enqueue(task.Descriptor{
			TaskID:    taskID,
			UserID:    msg.From.ID,
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			URL:       c.URL,
			Platform:  c.Platform,
		})

		queued++
	}

	if queued == 0 {
		b.reply(ctx, msg.Chat.ID, msg.MessageID, "❌ Could not queue your request, try again later.")

		return
	}

	logger.Info("queued download tasks", "count", queued)
	b.reply(ctx, msg.Chat.ID, msg.MessageID, fmt.Sprintf("⏳ Processing %d URL(s)...", queued))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(ctx, msg.Chat.ID, msg.MessageID,
			"Hi! Send me a link from TikTok, Instagram, YouTube, Twitter or Facebook and I'll fetch the media for you.")
	case "help":
		b.reply(ctx, msg.Chat.ID, msg.MessageID,
			"Send one or more media links in a message. I download them and send the files back. Multiple files arrive as a zip archive.")
	case "ban":
		b.handleBanCommand(ctx, msg, true)
	case "unban":
		b.handleBanCommand(ctx, msg, false)
	case "stats":
		b.handleStatsCommand(ctx, msg)
	}
}

func (b *Bot) handleBanCommand(ctx context.Context, msg *tgbotapi.Message, ban bool) {
	logger := logctx.LoggerFromContext(ctx)

	if !b.admins.IsAdmin(msg.From.ID) {
		return
	}

	target, err := parseTargetUserID(msg.CommandArguments())
	if err != nil {
		b.reply(ctx, msg.Chat.ID, msg.MessageID, "Usage: /"+msg.Command()+" <user id>")

		return
	}

	if err := b.users.SetBanned(ctx, target, ban); err != nil {
		logger.Error("failed to update ban flag", "target", target, "err", err)
		b.reply(ctx, msg.Chat.ID, msg.MessageID, "Failed to update the user.")

		return
	}

	verb := "unbanned"
	if ban {
		verb = "banned"
	}

	b.reply(ctx, msg.Chat.ID, msg.MessageID, fmt.Sprintf("User %d %s.", target, verb))
}

func (b *Bot) handleStatsCommand(ctx context.Context, msg *tgbotapi.Message) {
	logger := logctx.LoggerFromContext(ctx)

	if !b.admins.IsAdmin(msg.From.ID) {
		return
	}

	counts, err := b.tasks.CountByStatus(ctx)
	if err != nil {
		logger.Error("failed to load task stats", "err", err)
		b.reply(ctx, msg.Chat.ID, msg.MessageID, "Failed to load stats.")

		return
	}

	b.reply(ctx, msg.Chat.ID, msg.MessageID, formatStats(counts))
}

func (b *Bot) reply(ctx context.Context, chatID int64, replyTo int, text string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyToMessageID = replyTo

	if _, err := b.api.Send(reply); err != nil {
		logctx.LoggerFromContext(ctx).Error("failed to send reply", "err", err)
		b.telemetry.RecordSystemError("bot", "send_failed")
	}
}

func parseTargetUserID(args string) (int64, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, fmt.Errorf("expected exactly one user id, got %d arguments", len(fields))
	}

	return strconv.ParseInt(fields[0], 10, 64)
}

func formatStats(counts map[string]int64) string {
	var total int64
	for _, n := range counts {
		total += n
	}

	return fmt.Sprintf(
		"📊 Tasks: %d total\n  pending: %d\n  completed: %d\n  failed: %d",
		total, counts["pending"], counts["completed"], counts["failed"],
	)
}
