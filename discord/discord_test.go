package discord

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsanji/pocker-winner-bot/bot"
	"github.com/itsanji/pocker-winner-bot/poker"
	"github.com/itsanji/pocker-winner-bot/poker/store"
)

type sentMessage struct {
	channel string
	content string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, sentMessage{channel: channelID, content: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func newHandler() (*Handler, *bot.Dispatcher) {
	s := poker.NewSession(poker.SessionConfig{Store: store.NewMemory()})
	d := bot.NewDispatcher(s, nil, slog.New(slog.DiscardHandler))
	return NewHandler(d, slog.New(slog.DiscardHandler)), d
}

func message(author *discordgo.User, content string) *discordgo.Message {
	return &discordgo.Message{ChannelID: "chan-1", Content: content, Author: author}
}

func TestHandler_RepliesInChannel(t *testing.T) {
	h, d := newHandler()
	sender := &fakeSender{}

	h.handle(context.Background(), sender, message(&discordgo.User{Username: "anji"}, "!po start 400 Tuyen, Cuong"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "chan-1", sender.sent[0].channel)
	assert.Contains(t, sender.sent[0].content, "New Poker Session Started")
	assert.Equal(t, poker.StatusActive, d.Session().Status())

	events, err := d.Session().Events(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anji", events[0].Actor)
}

func TestHandler_IgnoresBotsAndChatter(t *testing.T) {
	h, d := newHandler()
	sender := &fakeSender{}

	h.handle(context.Background(), sender, message(&discordgo.User{Username: "pokerpal", Bot: true}, "!po start 400 A,B"))
	h.handle(context.Background(), sender, message(&discordgo.User{Username: "anji"}, "gg"))
	h.handle(context.Background(), sender, &discordgo.Message{Content: "!po help"})
	h.handle(context.Background(), sender, nil)

	assert.Empty(t, sender.sent)
	assert.Equal(t, poker.StatusEmpty, d.Session().Status())
}

func TestHandler_SendFailureIsLogged(t *testing.T) {
	h, d := newHandler()
	sender := &fakeSender{err: errors.New("missing access")}

	h.handle(context.Background(), sender, message(&discordgo.User{Username: "anji"}, "!po start 400 A,B"))

	assert.Equal(t, poker.StatusActive, d.Session().Status(), "the command still ran")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	text := "line one\nline two\nline three\n"
	chunks := SplitMessage(text, 12)
	assert.Equal(t, []string{"line one\n", "line two\n", "line three\n"}, chunks)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitMessage_LongLineKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("🂡", 10) // 4 bytes each
	chunks := SplitMessage(text, 10)

	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 10)
		assert.True(t, utf8.ValidString(c))
	}
}
