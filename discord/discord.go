/*
Package discord connects the dispatcher to a Discord bot account.

PURPOSE:
  Every guild message goes through bot.Dispatcher; command replies are
  posted back to the same channel. Messages from bots, the bot's own
  included, are ignored.

LIMITS:
  Discord rejects messages over 2000 characters. Longer replies are split
  on line boundaries.
*/
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/itsanji/pocker-winner-bot/bot"
)

const (
	MaxMessageLength = 2000

	replyTimeout = 30 * time.Second
)

// messageSender is the part of *discordgo.Session the handler needs.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Handler turns MESSAGE_CREATE events into dispatcher calls.
type Handler struct {
	dispatcher *bot.Dispatcher
	logger     *slog.Logger
}

func NewHandler(d *bot.Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dispatcher: d, logger: logger.With("component", "discord")}
}

// OnMessageCreate has the signature discordgo expects for AddHandler.
func (h *Handler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.handle(context.Background(), s, m.Message)
}

func (h *Handler) handle(ctx context.Context, s messageSender, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	reply, ok := h.dispatcher.Handle(ctx, m.Content, m.Author.Username)
	if !ok {
		return
	}

	for _, chunk := range SplitMessage(reply.String(), MaxMessageLength) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk, discordgo.WithContext(ctx)); err != nil {
			h.logger.Error("send reply failed", "channel_id", m.ChannelID, "error", err)
			return
		}
	}
}

// Bot owns the gateway connection.
type Bot struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// Open connects with token and starts routing messages to d.
func Open(token string, d *bot.Dispatcher, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	h := NewHandler(d, logger)
	s.AddHandler(h.OnMessageCreate)
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("discord connected", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("open discord gateway: %w", err)
	}
	return &Bot{session: s, logger: logger}, nil
}

func (b *Bot) Close() error {
	b.logger.Info("closing discord connection")
	return b.session.Close()
}

// SplitMessage cuts text into pieces of at most limit bytes, preferring
// line breaks. A single line longer than limit is cut at rune boundaries.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			flush()
			cut := limit
			for cut > 0 && !isRuneStart(line[cut]) {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			flush()
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
