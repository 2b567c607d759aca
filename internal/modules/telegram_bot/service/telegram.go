package service

import (
	"context"
	"errors"
	"fmt"

	"breakout_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends notifications to one chat and serves commands from it.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.chatID == 0 {
		return errors.New("telegram: chat id not set")
	}
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(tgbot.NewMessage(t.chatID, text))
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start long-polls updates and answers commands until ctx is done or Stop is called.
func (t *Telegram) Start(ctx context.Context, commands *Commands) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, commands, update)
			}
		}
	}()
}

func (t *Telegram) Stop() { t.bot.StopReceivingUpdates() }

func (t *Telegram) handleUpdate(ctx context.Context, commands *Commands, update tgbot.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat == nil || msg.Chat.ID != t.chatID {
		logger.Warn("telegram: ignoring /%s from chat %d", msg.Command(), chatIDOf(msg))
		return
	}

	reply := commands.Handle(ctx, msg.Command(), msg.CommandArguments())
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, reply)); err != nil {
		logger.Error("telegram: reply to /%s: %v", msg.Command(), err)
	}
}

func chatIDOf(msg *tgbot.Message) int64 {
	if msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}
