package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/kikitori/internal/relay"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSender(t *testing.T, rt roundTripFunc) *ChannelSender {
	t.Helper()
	c, err := NewChannelSender("test-token", "chan-1")
	if err != nil {
		t.Fatalf("failed to create sender: %v", err)
	}
	if rt != nil {
		c.session.Client = &http.Client{Transport: rt}
	}
	return c
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestSend_PostsChannelMessage(t *testing.T) {
	var gotContent string
	c := newTestSender(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/channels/chan-1/messages") {
			t.Errorf("unexpected request: %s %s", req.Method, req.URL.Path)
		}
		if auth := req.Header.Get("Authorization"); auth != "Bot test-token" {
			t.Errorf("unexpected authorization header: %q", auth)
		}
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		gotContent = payload.Content
		return jsonResponse(http.StatusOK, `{"id":"m-1","channel_id":"chan-1","content":"ok"}`), nil
	})

	err := c.Send(context.Background(), relay.Event{SessionID: "s", Index: 0, Transcript: "hello world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotContent != "`#1` hello world" {
		t.Fatalf("unexpected message content: %q", gotContent)
	}
}

func TestSend_ReturnsRESTError(t *testing.T) {
	c := newTestSender(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"message":"Missing Access","code":50001}`), nil
	})
	err := c.Send(context.Background(), relay.Event{Transcript: "x"})
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		t.Fatalf("expected RESTError, got %v", err)
	}
}

func TestResolveChannelName_FallsBackToREST(t *testing.T) {
	c := newTestSender(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/channels/chan-1") {
			t.Errorf("unexpected request path: %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"id":"chan-1","name":"transcripts","type":0}`), nil
	})
	name, err := c.ResolveChannelName()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "transcripts" {
		t.Fatalf("expected transcripts, got %q", name)
	}
}

func TestResolveChannelName_NotFound(t *testing.T) {
	c := newTestSender(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})
	if _, err := c.ResolveChannelName(); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestFormatMessage_TruncatesLongTranscripts(t *testing.T) {
	msg := formatMessage(relay.Event{Index: 4, Transcript: strings.Repeat("あ", 3000)})
	if n := utf8.RuneCountInString(msg); n != maxMessageRunes {
		t.Fatalf("expected %d runes, got %d", maxMessageRunes, n)
	}
	if !strings.HasPrefix(msg, "`#5` ") {
		t.Fatalf("unexpected prefix: %q", msg[:10])
	}
}
