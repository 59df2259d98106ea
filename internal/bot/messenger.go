package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger adapts the Telegram API to the delivery surface. The API
// client manages its own timeouts, so the context is not threaded through.
type Messenger struct {
	api *tgbotapi.BotAPI
}

func NewMessenger(api *tgbotapi.BotAPI) *Messenger {
	return &Messenger{api: api}
}

func (m *Messenger) SendVideo(_ context.Context, chatID int64, replyTo int, path, caption string) error {
	msg := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	msg.Caption = caption
	msg.ReplyToMessageID = replyTo

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send video: %w", err)
	}

	return nil
}

func (m *Messenger) SendPhoto(_ context.Context, chatID int64, replyTo int, path, caption string) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	msg.Caption = caption
	msg.ReplyToMessageID = replyTo

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}

	return nil
}

func (m *Messenger) SendDocument(_ context.Context, chatID int64, replyTo int, path, caption string) error {
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	msg.Caption = caption
	msg.ReplyToMessageID = replyTo

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}

	return nil
}

func (m *Messenger) SendText(_ context.Context, chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}
