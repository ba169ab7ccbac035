package userapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"VisionChatClient/internal/service/content"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client(), zap.NewNop().Sugar())
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["username"] != "alice" || body["password"] != "secret" {
			t.Errorf("unexpected body: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "bearer", "user_id": 7})
	})

	creds, err := c.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if creds.Token != "tok" || creds.UserID != 7 {
		t.Errorf("creds = %+v", creds)
	}
}

func TestLoginSurfacesServiceDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect username or password"})
	})

	_, err := c.Login(context.Background(), "alice", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Detail != "Incorrect username or password" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestRegister(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/register" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"user_id": 1})
	})

	if err := c.Register(context.Background(), "bob", "bob@example.org", "secret"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestChats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats/7" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"chats": []map[string]any{
			{"id": 2, "title": "New Chat", "created_at": "2024-05-01T10:00:00", "message_count": 4},
			{"id": 1, "title": "Welcome Chat", "created_at": "2024-04-01T10:00:00", "message_count": 0},
		}})
	})

	chats, err := c.Chats(context.Background(), "tok", 7)
	if err != nil {
		t.Fatalf("Chats failed: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("len = %d, want 2", len(chats))
	}
	// Порядок выдачи сервиса сохраняется
	if chats[0].ID != 2 || chats[1].ID != 1 {
		t.Errorf("order broken: %v", chats)
	}
	if chats[0].MessageCount != 4 {
		t.Errorf("MessageCount = %d, want 4", chats[0].MessageCount)
	}
	if chats[0].CreatedAt.IsZero() {
		t.Error("naive timestamp must still be parsed")
	}
}

func TestCreateChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chats/7" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 5, "title": "New Chat", "created_at": "2024-05-02T11:00:00"})
	})

	chat, err := c.CreateChat(context.Background(), "tok", 7)
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if chat.ID != 5 || chat.Title != "New Chat" {
		t.Errorf("chat = %+v", chat)
	}
}

func TestChatHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/7/3" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]any{
			{
				"role":      "user",
				"content":   []map[string]any{{"type": "text", "text": "вопрос"}},
				"timestamp": "2024-05-01T10:00:00",
			},
			{
				"role":       "assistant",
				"text":       "плоский ответ",
				"created_at": "2024-05-01T10:00:05",
			},
		}})
	})

	msgs, err := c.ChatHistory(context.Background(), "tok", 7, 3)
	if err != nil {
		t.Fatalf("ChatHistory failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Author != "user" {
		t.Errorf("author = %q", msgs[0].Author)
	}
	if got := msgs[0].Parts[0].(content.Text).Text; got != "вопрос" {
		t.Errorf("part text = %q", got)
	}
	// Плоское поле text превращается в одну текстовую часть
	if got := msgs[1].Parts[0].(content.Text).Text; got != "плоский ответ" {
		t.Errorf("flat text part = %q", got)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !msgs[0].CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", msgs[0].CreatedAt, want)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		zero bool
	}{
		{"rfc3339", "2024-05-01T10:00:00Z", false},
		{"naive", "2024-05-01T10:00:00", false},
		{"naive with micros", "2024-05-01T10:00:00.123456", false},
		{"garbage", "yesterday", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseTimestamp(tc.in)
			if got.IsZero() != tc.zero {
				t.Errorf("parseTimestamp(%q) = %v", tc.in, got)
			}
		})
	}
}
