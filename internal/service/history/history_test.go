package history

import (
	"testing"
	"time"

	"VisionChatClient/internal/service/content"
)

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	s := NewStore()
	m := s.Append(Message{Author: AuthorUser, Parts: []content.Part{content.Text{Text: "hi"}}})

	if m.ID == "" {
		t.Error("expected generated id")
	}
	if m.CreatedAt.IsZero() {
		t.Error("expected timestamp to be set")
	}

	// Заданные значения не перезаписываются
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m2 := s.Append(Message{ID: "fixed", CreatedAt: fixed, Author: AuthorAssistant})
	if m2.ID != "fixed" || !m2.CreatedAt.Equal(fixed) {
		t.Errorf("existing id/timestamp changed: %v %v", m2.ID, m2.CreatedAt)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := NewStore()
	for _, text := range []string{"a", "b", "c"} {
		s.Append(Message{Author: AuthorUser, Parts: []content.Part{content.Text{Text: text}}})
	}

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		got := all[i].Parts[0].(content.Text).Text
		if got != want {
			t.Errorf("all[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Append(Message{Author: AuthorUser})
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", s.Len())
	}
}

func TestReplace(t *testing.T) {
	s := NewStore()
	s.Append(Message{Author: AuthorUser})

	s.Replace([]Message{
		{Author: AuthorUser, Parts: []content.Part{content.Text{Text: "из истории"}}},
		{Author: AuthorAssistant, Parts: []content.Part{content.Text{Text: "ответ"}}},
	})

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID == "" || all[1].ID == "" {
		t.Error("Replace should assign ids to messages without one")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append(Message{Author: AuthorUser, Parts: []content.Part{content.Text{Text: "orig"}}})

	all := s.All()
	all[0].Author = AuthorAssistant

	if s.All()[0].Author != AuthorUser {
		t.Error("mutating the returned slice changed the store")
	}
}
