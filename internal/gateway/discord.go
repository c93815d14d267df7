package gateway

import (
	"context"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway mirrors the Telegram flow on Discord. Each channel
// maps to one conversation.
type DiscordGateway struct {
	Session *discordgo.Session
	Service *Service
}

func NewDiscordGateway(token string, service *Service) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &DiscordGateway{
		Session: session,
		Service: service,
	}, nil
}

func (dg *DiscordGateway) Start() error {
	dg.Session.AddHandler(dg.onMessage)
	dg.Session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	if err := dg.Session.Open(); err != nil {
		return err
	}
	log.Printf("Discord gateway connected as %s", dg.Session.State.User.Username)
	return nil
}

func (dg *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}

	log.Printf("[%s] %s", m.Author.Username, m.Content)

	ctx := context.Background()
	convID := conversationFor("discord", m.ChannelID)
	text := strings.TrimSpace(m.Content)

	var response string
	switch {
	case text == "/undo":
		result, err := dg.Service.HandleUndo(ctx, convID)
		response = undoReply(result, err)
	case strings.HasPrefix(text, "/ask "):
		answer, err := dg.Service.HandleAsk(ctx, convID, "discord", strings.TrimPrefix(text, "/ask "))
		if err != nil {
			log.Printf("Error answering: %v", err)
			response = "I'm having trouble reading the sheet right now..."
		} else {
			response = answer
		}
	default:
		msg, err := dg.Service.HandleChat(ctx, convID, "discord", text)
		if err != nil {
			log.Printf("Error planning: %v", err)
			response = "I'm having trouble thinking right now..."
		} else {
			response = RenderPlan(msg)
		}
	}

	if _, err := s.ChannelMessageSend(m.ChannelID, response); err != nil {
		log.Printf("Error sending to channel %s: %v", m.ChannelID, err)
	}
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	_, err := dg.Session.ChannelMessageSend(chatID, text)
	return err
}

func (dg *DiscordGateway) Stop() error {
	return dg.Session.Close()
}
