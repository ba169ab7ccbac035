package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"VisionChatClient/internal/service/content"
)

// Author — автор сообщения в диалоге. Значения совпадают с ролями на проводе.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Message — одна реплика диалога. После добавления в Store не изменяется.
type Message struct {
	ID        string
	Author    Author
	Parts     []content.Part
	CreatedAt time.Time
}

// Store — журнал сообщений активного чата. Только добавление в конец;
// полная замена содержимого допустима лишь при переключении чата.
type Store struct {
	mu       sync.Mutex
	messages []Message
}

func NewStore() *Store {
	return &Store{}
}

// Append добавляет сообщение в конец журнала. Пустые ID и CreatedAt
// заполняются на месте. Возвращает сохранённую копию.
func (s *Store) Append(m Message) Message {
	m = normalize(m)
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return m
}

// Clear полностью очищает журнал. Частичных очисток не бывает.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// Replace атомарно заменяет содержимое журнала историей другого чата.
func (s *Store) Replace(msgs []Message) {
	replacement := make([]Message, len(msgs))
	for i, m := range msgs {
		replacement[i] = normalize(m)
	}
	s.mu.Lock()
	s.messages = replacement
	s.mu.Unlock()
}

// All возвращает копию журнала в порядке добавления.
func (s *Store) All() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func normalize(m Message) Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return m
}
