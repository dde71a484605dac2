package bot

import (
	"context"
	"fmt"
	"html"

	"github.com/pkg/errors"
	tele "gopkg.in/telebot.v3"

	"release-notifier-bot/notify"
	"release-notifier-bot/templates"
)

// Sender is the part of *tele.Bot used to push notifications.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramSink delivers release messages as a photo with an HTML caption.
type TelegramSink struct {
	sender Sender
}

func NewTelegramSink(sender Sender) *TelegramSink {
	return &TelegramSink{sender: sender}
}

func (t *TelegramSink) Deliver(ctx context.Context, userId int64, message notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	caption := releaseCaption(message)
	var what interface{} = caption
	if len(message.ImageURL) > 0 {
		what = &tele.Photo{File: tele.FromURL(message.ImageURL), Caption: caption}
	}
	_, err := t.sender.Send(tele.ChatID(userId), what, tele.ModeHTML)
	if err != nil {
		return errors.Wrapf(err, "cannot send release to %v", userId)
	}
	return nil
}

func releaseCaption(m notify.Message) string {
	args := []interface{}{
		html.EscapeString(m.Title),
		"",
		html.EscapeString(m.Download.URL),
		html.EscapeString(m.Download.Label),
		html.EscapeString(m.ShowPage.URL),
		html.EscapeString(m.ShowPage.Label),
		html.EscapeString(m.Search.URL),
		html.EscapeString(m.Search.Label),
	}
	bare := fmt.Sprintf(templates.Release, args...)
	args[1] = truncate(m.Synopsis, captionLimit-runeCount(bare))
	return fmt.Sprintf(templates.Release, args...)
}
