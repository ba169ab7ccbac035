package userapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"VisionChatClient/internal/service/content"
	"VisionChatClient/internal/service/history"
	"VisionChatClient/internal/service/session"
)

// APIError — ответ сервиса пользователей со статусом вне 2xx.
// Detail — текст ошибки из тела ответа, показывается пользователю как есть.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("user service returned status %d", e.StatusCode)
}

// Client — HTTP-клиент сервиса пользователей: регистрация, вход,
// реестр чатов и история. Реализует session.Directory.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger
}

func New(baseURL string, httpClient *http.Client, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.postJSON(ctx, "/auth/register", "", body, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (session.Credentials, error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	if err := c.postJSON(ctx, "/auth/login", "", body, &resp); err != nil {
		return session.Credentials{}, err
	}
	return session.Credentials{Token: resp.AccessToken, UserID: resp.UserID}, nil
}

type wireChat struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	MessageCount int    `json:"message_count"`
}

func (c *Client) Chats(ctx context.Context, token string, userID int64) ([]session.Chat, error) {
	var resp struct {
		Chats []wireChat `json:"chats"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/chats/%d", userID), token, &resp); err != nil {
		return nil, err
	}
	chats := make([]session.Chat, 0, len(resp.Chats))
	for _, w := range resp.Chats {
		chats = append(chats, session.Chat{
			ID:           w.ID,
			Title:        w.Title,
			CreatedAt:    parseTimestamp(w.CreatedAt),
			MessageCount: w.MessageCount,
		})
	}
	return chats, nil
}

func (c *Client) CreateChat(ctx context.Context, token string, userID int64) (session.Chat, error) {
	var w wireChat
	if err := c.postJSON(ctx, fmt.Sprintf("/chats/%d", userID), token, struct{}{}, &w); err != nil {
		return session.Chat{}, err
	}
	return session.Chat{
		ID:           w.ID,
		Title:        w.Title,
		CreatedAt:    parseTimestamp(w.CreatedAt),
		MessageCount: w.MessageCount,
	}, nil
}

// Сообщение истории. Контент приходит списком частей; старый формат
// с плоским полем text тоже принимаем.
type wireHistoryMessage struct {
	ID        json.Number   `json:"id"`
	Role      string        `json:"role"`
	Content   content.Parts `json:"content"`
	Text      string        `json:"text"`
	CreatedAt string        `json:"created_at"`
	Timestamp string        `json:"timestamp"`
}

func (c *Client) ChatHistory(ctx context.Context, token string, userID, chatID int64) ([]history.Message, error) {
	var resp struct {
		Messages []wireHistoryMessage `json:"messages"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/chat/%d/%d", userID, chatID), token, &resp); err != nil {
		return nil, err
	}

	msgs := make([]history.Message, 0, len(resp.Messages))
	for _, w := range resp.Messages {
		parts := []content.Part(w.Content)
		if len(parts) == 0 && w.Text != "" {
			parts = []content.Part{content.Text{Text: w.Text}}
		}
		ts := w.CreatedAt
		if ts == "" {
			ts = w.Timestamp
		}
		msgs = append(msgs, history.Message{
			ID:        w.ID.String(),
			Author:    history.Author(w.Role),
			Parts:     parts,
			CreatedAt: parseTimestamp(ts),
		})
	}
	return msgs, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) getJSON(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("user service request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("user service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: extractDetail(data)}
		c.logger.Warnw("Сервис пользователей вернул ошибку",
			"path", req.URL.Path, "status", resp.StatusCode, "detail", apiErr.Detail)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("user service response: %w", err)
	}
	return nil
}

func extractDetail(data []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return ""
}

// Временные метки сервис отдаёт и с зоной, и без (naive datetime из БД).
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
