package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/rahul/gridmind/internal/plan"
)

// TelegramGateway drives the copilot from a Telegram chat. Each chat
// maps to one conversation; /undo reverses the chat's latest plan.
type TelegramGateway struct {
	Bot     *tgbotapi.BotAPI
	Service *Service
}

func NewTelegramGateway(token string, service *Service) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:     bot,
		Service: service,
	}, nil
}

// conversationFor maps a chat ID to a stable conversation UUID.
func conversationFor(channel, chatID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(channel+":"+chatID))
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		ctx := context.Background()
		chatID := fmt.Sprintf("%d", update.Message.Chat.ID)
		convID := conversationFor("telegram", chatID)
		text := strings.TrimSpace(update.Message.Text)

		var response string
		switch {
		case text == "/undo":
			result, err := tg.Service.HandleUndo(ctx, convID)
			response = undoReply(result, err)
		case strings.HasPrefix(text, "/ask "):
			answer, err := tg.Service.HandleAsk(ctx, convID, "telegram", strings.TrimPrefix(text, "/ask "))
			if err != nil {
				log.Printf("Error answering: %v", err)
				response = "I'm having trouble reading the sheet right now..."
			} else {
				response = answer
			}
		default:
			m, err := tg.Service.HandleChat(ctx, convID, "telegram", text)
			if err != nil {
				log.Printf("Error planning: %v", err)
				response = "I'm having trouble thinking right now..."
			} else {
				response = RenderPlan(m)
			}
		}

		msg := tgbotapi.NewMessage(update.Message.Chat.ID, response)
		tg.Bot.Send(msg)
	}
	return nil
}

func undoReply(result string, err error) string {
	switch {
	case err == nil:
		return result
	case errors.Is(err, ErrNothingToUndo):
		return "There is nothing to undo in this chat."
	case errors.Is(err, plan.ErrAlreadyUndone):
		return "That plan was already undone."
	case errors.Is(err, plan.ErrUndoUnavailable):
		return "That plan completed no steps, so there is nothing to reverse."
	default:
		return fmt.Sprintf("Undo failed: %v. You can try again.", err)
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := 0
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	msg.ParseMode = "Markdown"
	_, err := tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
