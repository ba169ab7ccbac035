package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"VisionChatClient/internal/adapter/inference"
	"VisionChatClient/internal/service/content"
	"VisionChatClient/internal/service/history"
	"VisionChatClient/internal/service/session"
)

// ErrNoChatSelected — авторизованная отправка без выбранного чата.
var ErrNoChatSelected = errors.New("no chat selected")

// InferenceClient — клиент сервиса инференса. Реализация — adapter/inference.
type InferenceClient interface {
	Unauth(ctx context.Context, turns []inference.Turn) (string, error)
	Auth(ctx context.Context, token string, userID, chatID int64, query inference.Turn) (string, error)
}

// AuthState отдаёт срез состояния сессии. Реализация — service/session.
type AuthState interface {
	Snapshot() session.Snapshot
}

// Dispatcher выбирает контракт инференса по состоянию сессии и сводит
// асинхронный ответ обратно в журнал сообщений.
type Dispatcher struct {
	state  AuthState
	store  *history.Store
	ai     InferenceClient
	logger *zap.SugaredLogger
}

func New(state AuthState, store *history.Store, ai InferenceClient, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{state: state, store: store, ai: ai, logger: logger}
}

// Send отправляет составленное сообщение. Пустая композиция — тихий no-op.
// Своё сообщение попадает в журнал до сетевого вызова, поэтому видно сразу.
// Любая неудача превращается в синтетический ответ ассистента в журнале,
// диалог всегда остаётся в рабочем состоянии.
func (d *Dispatcher) Send(ctx context.Context, parts []content.Part) (history.Message, bool) {
	if len(parts) == 0 {
		return history.Message{}, false
	}

	d.store.Append(history.Message{Author: history.AuthorUser, Parts: parts})

	snap := d.state.Snapshot()
	var answer string
	var err error
	switch {
	case !snap.Authenticated:
		answer, err = d.ai.Unauth(ctx, d.fullHistory())
	case snap.CurrentChatID == 0:
		err = ErrNoChatSelected
	default:
		query := inference.Turn{Role: string(history.AuthorUser), Parts: parts}
		answer, err = d.ai.Auth(ctx, snap.Token, snap.UserID, snap.CurrentChatID, query)
	}

	if err != nil {
		d.logger.Warnw("Запрос инференса не удался", "error", err)
		answer = fmt.Sprintf("Не удалось получить ответ: %v", err)
	}

	reply := d.store.Append(history.Message{
		Author: history.AuthorAssistant,
		Parts:  []content.Part{content.Text{Text: answer}},
	})
	return reply, true
}

// fullHistory собирает весь журнал (включая только что добавленную реплику)
// в формат role+content для анонимного контракта.
func (d *Dispatcher) fullHistory() []inference.Turn {
	msgs := d.store.All()
	turns := make([]inference.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, inference.Turn{Role: string(m.Author), Parts: m.Parts})
	}
	return turns
}
