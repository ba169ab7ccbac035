package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"VisionChatClient/internal/service/history"
)

var (
	// ErrNotAuthenticated — операция требует авторизованной сессии.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnknownChat — выбранного чата нет в реестре пользователя.
	ErrUnknownChat = errors.New("unknown chat")
	// ErrAuthInFlight — запрос авторизации уже выполняется.
	ErrAuthInFlight = errors.New("auth request already in flight")
)

// Chat — запись реестра чатов пользователя.
type Chat struct {
	ID           int64
	Title        string
	CreatedAt    time.Time
	MessageCount int
}

// Credentials — результат успешного входа.
type Credentials struct {
	Token  string
	UserID int64
}

// Directory — клиент сервиса пользователей. Реализация — adapter/userapi.
type Directory interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, username, password string) (Credentials, error)
	Chats(ctx context.Context, token string, userID int64) ([]Chat, error)
	CreateChat(ctx context.Context, token string, userID int64) (Chat, error)
	ChatHistory(ctx context.Context, token string, userID, chatID int64) ([]history.Message, error)
}

// Snapshot — срез состояния сессии для принятия решений без доступа к мутациям.
type Snapshot struct {
	Authenticated bool
	Token         string
	UserID        int64
	Username      string
	CurrentChatID int64 // 0 — чат не выбран
}

// Session — машина состояний авторизации и реестр чатов.
// Единственный владелец своих полей: все переходы только через методы ниже.
type Session struct {
	api    Directory
	store  *history.Store
	logger *zap.SugaredLogger

	mu            sync.Mutex
	inFlight      bool
	authenticated bool
	token         string
	userID        int64
	username      string
	chats         []Chat
	currentChatID int64
}

func New(api Directory, store *history.Store, logger *zap.SugaredLogger) *Session {
	return &Session{api: api, store: store, logger: logger}
}

// Register регистрирует пользователя и при успехе сразу выполняет вход.
// При ошибке сервиса состояние не меняется, повторов нет.
func (s *Session) Register(ctx context.Context, username, email, password string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	err := s.api.Register(ctx, username, email, password)
	s.release()
	if err != nil {
		s.logger.Warnw("Регистрация не удалась", "username", username, "error", err)
		return err
	}
	return s.Login(ctx, username, password)
}

// Login выполняет вход и при успехе загружает реестр чатов.
// Неудача загрузки чатов вход не отменяет.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	creds, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.logger.Warnw("Вход не удался", "username", username, "error", err)
		return err
	}

	s.mu.Lock()
	s.authenticated = true
	s.token = creds.Token
	s.userID = creds.UserID
	s.username = username
	s.mu.Unlock()

	s.LoadChats(ctx, creds.UserID)
	return nil
}

// Logout сбрасывает сессию в анонимное состояние. Не может завершиться ошибкой.
func (s *Session) Logout() {
	s.mu.Lock()
	s.authenticated = false
	s.token = ""
	s.userID = 0
	s.username = ""
	s.chats = nil
	s.currentChatID = 0
	s.mu.Unlock()
	s.store.Clear()
}

// LoadChats загружает реестр чатов пользователя. При ошибке реестр становится
// пустым, авторизация остаётся в силе — ошибка только логируется.
func (s *Session) LoadChats(ctx context.Context, userID int64) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	chats, err := s.api.Chats(ctx, token, userID)
	if err != nil {
		s.logger.Warnw("Не удалось загрузить список чатов", "user_id", userID, "error", err)
		s.mu.Lock()
		s.chats = nil
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.chats = chats
	if s.currentChatID == 0 && len(chats) > 0 {
		s.currentChatID = chats[0].ID
	}
	s.mu.Unlock()
}

// CreateChat создаёт новый чат, делает его текущим и очищает журнал сообщений.
// При ошибке сервиса реестр и текущий чат не меняются.
func (s *Session) CreateChat(ctx context.Context) (Chat, error) {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return Chat{}, ErrNotAuthenticated
	}
	token, userID := s.token, s.userID
	s.mu.Unlock()

	chat, err := s.api.CreateChat(ctx, token, userID)
	if err != nil {
		return Chat{}, err
	}

	s.mu.Lock()
	s.chats = append(s.chats, chat)
	s.currentChatID = chat.ID
	s.mu.Unlock()
	s.store.Clear()
	return chat, nil
}

// SelectChat делает известный чат текущим и заменяет журнал его историей.
// Если историю получить не удалось, прежние сообщения остаются на экране.
func (s *Session) SelectChat(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	known := false
	for _, c := range s.chats {
		if c.ID == chatID {
			known = true
			break
		}
	}
	if !known {
		s.mu.Unlock()
		return ErrUnknownChat
	}
	s.currentChatID = chatID
	token, userID := s.token, s.userID
	s.mu.Unlock()

	msgs, err := s.api.ChatHistory(ctx, token, userID, chatID)
	if err != nil {
		s.logger.Warnw("Не удалось загрузить историю чата", "chat_id", chatID, "error", err)
		return nil
	}
	s.store.Replace(msgs)
	return nil
}

// Snapshot возвращает срез текущего состояния.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Authenticated: s.authenticated,
		Token:         s.token,
		UserID:        s.userID,
		Username:      s.username,
		CurrentChatID: s.currentChatID,
	}
}

// Chats возвращает копию реестра чатов в порядке получения.
func (s *Session) Chats() []Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

// acquire/release ограничивают авторизацию одним запросом за раз.
func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrAuthInFlight
	}
	s.inFlight = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}
