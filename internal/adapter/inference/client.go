package inference

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
)

// Turn — одна реплика в терминах проводного контракта инференса.
type Turn struct {
	Role  string        `json:"role"`
	Parts content.Parts `json:"content"`
}

// APIError — ответ сервиса инференса со статусом вне 2xx.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("inference service returned status %d", e.StatusCode)
}

// Client — HTTP-клиент сервиса инференса: анонимный вызов с полной историей
// и авторизованный вызов с одним запросом и идентификатором чата.
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

// Unauth отправляет весь видимый диалог анонимному контракту инференса.
// Сервис требует чередования ролей user/assistant начиная с user.
func (c *Client) Unauth(ctx context.Context, turns []Turn) (string, error) {
	body := struct {
		Messages []Turn `json:"messages"`
	}{Messages: turns}
	return c.post(ctx, "/unauth-inference", "", body)
}

// Auth отправляет только новую реплику: историю сервер восстанавливает сам
// по user_id и chat_id.
func (c *Client) Auth(ctx context.Context, token string, userID, chatID int64, query Turn) (string, error) {
	body := struct {
		UserQuery Turn  `json:"user_query"`
		UserID    int64 `json:"user_id"`
		ChatID    int64 `json:"chat_id"`
	}{UserQuery: query, UserID: userID, ChatID: chatID}
	return c.post(ctx, "/auth-inference", token, body)
}

func (c *Client) post(ctx context.Context, path, token string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	c.logger.Infow("Запрос к сервису инференса", "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Errorw("Сервис инференса недоступен", "path", path, "error", err)
		return "", fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("inference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: extractDetail(data)}
		c.logger.Errorw("Ошибка сервиса инференса", "path", path, "status", resp.StatusCode, "detail", apiErr.Detail)
		return "", apiErr
	}

	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("inference response: %w", err)
	}
	c.logger.Infow("Ответ инференса получен", "path", path, "duration", time.Since(start).String())
	return out.Answer, nil
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
