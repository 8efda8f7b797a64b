package discord

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/bomsync/internal/notify"
)

// --- Mock session ---

type mockSession struct {
	mu        sync.Mutex
	user      *discordgo.User
	userErr   error
	sent      []sentMessage
	sendErr   error
	failTimes int // how many sends fail with sendErr before succeeding
	attempts  int
}

type sentMessage struct {
	channelID string
	data      *discordgo.MessageSend
}

func newMockSession() *mockSession {
	return &mockSession{
		user: &discordgo.User{ID: "BOT123", Username: "bomsync"},
	}
}

func (m *mockSession) User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	return m.user, m.userErr
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.sendErr != nil && (m.failTimes == 0 || m.attempts <= m.failTimes) {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, sentMessage{channelID: channelID, data: data})
	return &discordgo.Message{ID: "M1"}, nil
}

func (m *mockSession) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockSession) lastSent() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// rateLimitErr builds a Discord 429 REST error.
func rateLimitErr() error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
}

// --- Helper to create a connected adapter ---

func newTestAdapter(t *testing.T) (*Adapter, *mockSession) {
	t.Helper()
	sess := newMockSession()

	a, err := New(AdapterOpts{
		Session:   sess,
		ChannelID: "CH_BOM",
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	a.baseBackoff = time.Millisecond
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return a, sess
}

// --- New tests ---

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(AdapterOpts{ChannelID: "CH_BOM"})
	if err == nil {
		t.Fatal("expected error without token or session")
	}
	if !strings.Contains(err.Error(), "bot token is required") {
		t.Errorf("error = %q", err)
	}
}

func TestNew_RequiresChannel(t *testing.T) {
	_, err := New(AdapterOpts{Session: newMockSession()})
	if err == nil {
		t.Fatal("expected error without channel")
	}
	if !strings.Contains(err.Error(), "channel is required") {
		t.Errorf("error = %q", err)
	}
}

// --- Connect tests ---

func TestConnect_VerifiesToken(t *testing.T) {
	sess := newMockSession()
	sess.userErr = errors.New("401: Unauthorized")

	a, err := New(AdapterOpts{Session: sess, ChannelID: "CH_BOM"})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	err = a.Connect(context.Background())
	if err == nil {
		t.Fatal("expected token verification error")
	}
	if !strings.Contains(err.Error(), "verify token") {
		t.Errorf("error = %q", err)
	}
}

// --- Send tests ---

func TestSend_NotConnected(t *testing.T) {
	a, err := New(AdapterOpts{Session: newMockSession(), ChannelID: "CH_BOM"})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	if err := a.Send(context.Background(), notify.Message{Text: "hi"}); err == nil {
		t.Fatal("expected not-connected error")
	}
}

func TestSend_PostsEmbedsToChannel(t *testing.T) {
	a, sess := newTestAdapter(t)

	err := a.Send(context.Background(), notify.Message{Events: []notify.FormattedEvent{{
		Title:    "Rack RACK-0141 updated from Arena",
		Body:     "2 changes applied",
		Severity: "success",
		Color:    notify.ColorSuccess,
		Fields: []notify.Field{
			{Name: "Rack", Value: "RACK-0141", Short: true},
		},
	}}})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sess.sentCount() != 1 {
		t.Fatalf("sent = %d, want 1", sess.sentCount())
	}

	last := sess.lastSent()
	if last.channelID != "CH_BOM" {
		t.Errorf("channel = %q, want CH_BOM", last.channelID)
	}
	if len(last.data.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(last.data.Embeds))
	}
	embed := last.data.Embeds[0]
	if embed.Title != "Rack RACK-0141 updated from Arena" {
		t.Errorf("embed title = %q", embed.Title)
	}
	if embed.Color != 0x36a64f {
		t.Errorf("embed color = %#x, want 0x36a64f", embed.Color)
	}
	if len(embed.Fields) != 1 || !embed.Fields[0].Inline {
		t.Errorf("embed fields = %+v", embed.Fields)
	}
}

func TestSend_RetriesRateLimit(t *testing.T) {
	a, sess := newTestAdapter(t)
	sess.sendErr = rateLimitErr()
	sess.failTimes = 2

	if err := a.Send(context.Background(), notify.Message{Text: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if sess.sentCount() != 1 {
		t.Errorf("sent = %d, want 1", sess.sentCount())
	}
	if sess.attempts != 3 {
		t.Errorf("attempts = %d, want 3", sess.attempts)
	}
}

func TestSend_DoesNotRetryOtherErrors(t *testing.T) {
	a, sess := newTestAdapter(t)
	sess.sendErr = errors.New("missing permissions")

	err := a.Send(context.Background(), notify.Message{Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "send message") {
		t.Errorf("error = %q", err)
	}
	if sess.attempts != 1 {
		t.Errorf("attempts = %d, want 1", sess.attempts)
	}
}

func TestSend_AfterClose(t *testing.T) {
	a, _ := newTestAdapter(t)
	a.Close()
	if err := a.Send(context.Background(), notify.Message{Text: "hi"}); err == nil {
		t.Fatal("expected error sending on a closed adapter")
	}
}

// --- Formatting tests ---

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		hex  string
		want int
	}{
		{"#36a64f", 0x36a64f},
		{"2196f3", 0x2196f3},
		{"#FF9800", 0xff9800},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseHexColor(tt.hex); got != tt.want {
			t.Errorf("parseHexColor(%q) = %#x, want %#x", tt.hex, got, tt.want)
		}
	}
}

func TestEventToEmbed_TextOnlyMessage(t *testing.T) {
	data := buildMessageSend(notify.Message{Text: "bomsync watch online"})
	if data.Content != "bomsync watch online" {
		t.Errorf("content = %q", data.Content)
	}
	if len(data.Embeds) != 0 {
		t.Errorf("embeds = %d, want 0", len(data.Embeds))
	}
}
