package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"VisionChatClient/internal/adapter/inference"
	"VisionChatClient/internal/adapter/userapi"
	"VisionChatClient/internal/app/dispatcher"
	"VisionChatClient/internal/config"
	"VisionChatClient/internal/service/content"
	"VisionChatClient/internal/service/history"
	"VisionChatClient/internal/service/image"
	"VisionChatClient/internal/service/session"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	sugar.Infow(
		"Starting app",
		"DebugMode", cfg.DebugMode,
		"UserServiceURL", cfg.UserServiceURL,
		"InferenceServiceURL", cfg.InferenceServiceURL,
	)

	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second}
	users := userapi.New(cfg.UserServiceURL, httpClient, sugar)
	ai := inference.New(cfg.InferenceServiceURL, httpClient, sugar)

	store := history.NewStore()
	sess := session.New(users, store, sugar)
	disp := dispatcher.New(sess, store, ai, sugar)
	processor := image.NewProcessor(cfg.ImageMaxDimension, cfg.ImageJPEGQuality)

	a := &app{
		sess:      sess,
		store:     store,
		disp:      disp,
		processor: processor,
		logger:    sugar,
	}
	a.run(context.Background())
}

type app struct {
	sess      *session.Session
	store     *history.Store
	disp      *dispatcher.Dispatcher
	processor *image.Processor
	logger    *zap.SugaredLogger

	// Обработанные вложения, которые уйдут со следующим сообщением
	pending []content.Part
}

func (a *app) run(ctx context.Context) {
	fmt.Println("Чат запущен. /help — список команд, /quit — выход.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(a.prompt())
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "/") {
			if quit := a.handleCommand(ctx, strings.TrimSpace(line)); quit {
				return
			}
			continue
		}

		a.sendMessage(ctx, line)
	}
}

func (a *app) prompt() string {
	snap := a.sess.Snapshot()
	if !snap.Authenticated {
		return "(аноним) > "
	}
	if snap.CurrentChatID == 0 {
		return fmt.Sprintf("(%s) > ", snap.Username)
	}
	return fmt.Sprintf("(%s, чат %d) > ", snap.Username, snap.CurrentChatID)
}

func (a *app) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Print(helpText)

	case "/register":
		if len(args) != 3 {
			fmt.Println("Использование: /register <логин> <email> <пароль>")
			break
		}
		if err := a.sess.Register(ctx, args[0], args[1], args[2]); err != nil {
			fmt.Printf("Ошибка регистрации: %v\n", err)
			break
		}
		fmt.Printf("Добро пожаловать, %s!\n", args[0])
		a.renderAll()

	case "/login":
		if len(args) != 2 {
			fmt.Println("Использование: /login <логин> <пароль>")
			break
		}
		if err := a.sess.Login(ctx, args[0], args[1]); err != nil {
			fmt.Printf("Ошибка входа: %v\n", err)
			break
		}
		fmt.Printf("Вход выполнен: %s\n", args[0])
		a.listChats()
		// Показать историю чата, выбранного по умолчанию
		if snap := a.sess.Snapshot(); snap.CurrentChatID != 0 {
			if err := a.sess.SelectChat(ctx, snap.CurrentChatID); err != nil {
				fmt.Printf("Ошибка: %v\n", err)
			}
			a.renderAll()
		}

	case "/logout":
		a.sess.Logout()
		a.pending = nil
		fmt.Println("Вы вышли из аккаунта.")

	case "/chats":
		a.listChats()

	case "/new":
		chat, err := a.sess.CreateChat(ctx)
		if err != nil {
			fmt.Printf("Не удалось создать чат: %v\n", err)
			break
		}
		fmt.Printf("Создан чат %d (%s)\n", chat.ID, chat.Title)

	case "/open":
		if len(args) != 1 {
			fmt.Println("Использование: /open <id чата>")
			break
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Println("Использование: /open <id чата>")
			break
		}
		if err := a.sess.SelectChat(ctx, id); err != nil {
			fmt.Printf("Не удалось открыть чат: %v\n", err)
			break
		}
		a.renderAll()

	case "/attach":
		if len(args) != 1 {
			fmt.Println("Использование: /attach <путь к файлу>")
			break
		}
		a.attach(args[0])

	default:
		fmt.Printf("Неизвестная команда %s, /help — список команд\n", cmd)
	}
	return false
}

// attach прогоняет файл через препроцессор и откладывает результат
// до следующей отправки. Неподходящий файл отклоняется до любых изменений.
func (a *app) attach(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Не удалось прочитать файл: %v\n", err)
		return
	}
	mediaType := mime.TypeByExtension(filepath.Ext(path))
	encoded, err := a.processor.Preprocess(data, mediaType)
	if err != nil {
		a.logger.Warnw("Вложение отклонено", "path", path, "mediaType", mediaType, "error", err)
		fmt.Printf("Файл не является изображением: %v\n", err)
		return
	}
	a.pending = append(a.pending, content.ImageBase64{Base64: encoded})
	fmt.Printf("Изображение добавлено к следующему сообщению (вложений: %d)\n", len(a.pending))
}

func (a *app) sendMessage(ctx context.Context, line string) {
	visible, images := content.Parse(line)

	parts := make([]content.Part, 0, len(images)+len(a.pending)+1)
	if visible != "" {
		parts = append(parts, content.Text{Text: visible})
	}
	parts = append(parts, images...)
	parts = append(parts, a.pending...)

	// Пустая композиция — тихий no-op, вложения не трогаем
	reply, ok := a.disp.Send(ctx, parts)
	if !ok {
		return
	}
	a.pending = nil
	fmt.Print(renderMessage(reply))
}

func (a *app) listChats() {
	chats := a.sess.Chats()
	if len(chats) == 0 {
		fmt.Println("Чатов нет.")
		return
	}
	current := a.sess.Snapshot().CurrentChatID
	for _, c := range chats {
		marker := " "
		if c.ID == current {
			marker = "*"
		}
		fmt.Printf("%s %d  %s  (%d сообщений)\n", marker, c.ID, c.Title, c.MessageCount)
	}
}

func (a *app) renderAll() {
	for _, m := range a.store.All() {
		fmt.Print(renderMessage(m))
	}
}

// renderMessage — чистое отображение сообщения в строки терминала.
func renderMessage(m history.Message) string {
	var b strings.Builder
	switch m.Author {
	case history.AuthorUser:
		b.WriteString("Вы: ")
	case history.AuthorAssistant:
		b.WriteString("Ассистент: ")
	default:
		b.WriteString(string(m.Author) + ": ")
	}
	for i, p := range m.Parts {
		if i > 0 {
			b.WriteString("\n    ")
		}
		switch v := p.(type) {
		case content.Text:
			b.WriteString(v.Text)
		case content.ImageURL:
			b.WriteString("[изображение: " + v.URL + "]")
		case content.ImageBase64:
			b.WriteString("[встроенное изображение]")
		}
	}
	b.WriteString("\n")
	return b.String()
}

const helpText = `Команды:
  /register <логин> <email> <пароль> — регистрация (после успеха — автоматический вход)
  /login <логин> <пароль>            — вход
  /logout                            — выход
  /chats                             — список чатов (* — текущий)
  /new                               — создать чат
  /open <id>                         — открыть чат и показать историю
  /attach <путь>                     — приложить изображение к следующему сообщению
  /quit                              — выход из программы
Любой другой ввод отправляется как сообщение. Ссылки на изображения можно
вставлять прямо в текст или через маркер [Image Link: <url>].
`
