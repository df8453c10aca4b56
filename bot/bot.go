package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arepazo-bot/config"
	"arepazo-bot/dialog"
	"arepazo-bot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot bridges Telegram updates to the dialog engine. Chat identities are
// the decimal chat id, matching what the engine stores in sessions and
// orders.
type Bot struct {
	api           *tgbotapi.BotAPI
	cfg           *config.Config
	engine        *dialog.Engine
	verifications *services.VerificationLog
	admin         int64
}

func New(cfg *config.Config, verifications *services.VerificationLog) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram api: %w", err)
	}
	return &Bot{
		api:           api,
		cfg:           cfg,
		verifications: verifications,
		admin:         cfg.Telegram.AdminChatID,
	}, nil
}

// SetEngine wires the dialog engine after construction; the bot is the
// engine's ChatClient, so the two cannot be built in one step.
func (b *Bot) SetEngine(engine *dialog.Engine) {
	b.engine = engine
}

func (b *Bot) Start() {
	log.Printf("bot authorized as @%s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		msg := update.Message

		if b.admin != 0 && msg.Chat.ID == b.admin {
			go b.handleAdminMessage(msg)
			continue
		}

		inbound := dialog.Inbound{
			From: strconv.FormatInt(msg.Chat.ID, 10),
			Body: msg.Text,
		}
		if inbound.Body == "" {
			inbound.Body = msg.Caption
		}
		if len(msg.Photo) > 0 {
			photo := msg.Photo[len(msg.Photo)-1] // largest size last
			inbound.Media = func(ctx context.Context) ([]byte, error) {
				return b.downloadFile(ctx, photo.FileID)
			}
		}

		go b.engine.HandleMessage(context.Background(), inbound)
	}
}

// handleAdminMessage resolves a bare "1" (confirm) or "2" (deny) reply
// against the newest pending verification.
func (b *Bot) handleAdminMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	text := strings.TrimSpace(msg.Text)
	if text != "1" && text != "2" {
		return
	}

	rec, err := b.verifications.LastPending(ctx)
	if err != nil {
		log.Printf("admin decision lookup: %v", err)
		return
	}
	if rec == nil {
		b.reply(msg.Chat.ID, "No hay verificaciones pendientes.")
		return
	}

	approved := text == "1"
	if err := b.engine.HandleAdminDecision(ctx, rec.ID, rec.CustomerID, approved); err != nil {
		log.Printf("admin decision %s: %v", rec.ID, err)
		b.reply(msg.Chat.ID, "Error al procesar la decisión. Intenta de nuevo.")
		return
	}
	if approved {
		b.reply(msg.Chat.ID, "✅ Pago "+rec.ID+" confirmado.")
	} else {
		b.reply(msg.Chat.ID, "❌ Pago "+rec.ID+" denegado.")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("send error: %v", err)
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// typingDelay approximates a human typing the message, capped at 1s so
// long summaries do not stall the conversation.
func typingDelay(text string) time.Duration {
	d := time.Duration(len(text)) * 15 * time.Millisecond
	if d > time.Second {
		d = time.Second
	}
	return d
}

func parseChat(to string) (int64, error) {
	id, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("chat id %q: %w", to, err)
	}
	return id, nil
}

// SendMessage implements dialog.ChatClient with a short typing simulation.
func (b *Bot) SendMessage(ctx context.Context, to, text string) error {
	chatID, err := parseChat(to)
	if err != nil {
		return err
	}
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err == nil {
		select {
		case <-time.After(typingDelay(text)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) SendImage(ctx context.Context, to string, data []byte, caption string) error {
	chatID, err := parseChat(to)
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "comprobante.jpg", Bytes: data})
	photo.Caption = caption
	photo.ParseMode = "Markdown"
	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("send photo to %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) SendImageFile(ctx context.Context, to, path, caption string) error {
	chatID, err := parseChat(to)
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("send photo to %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) SendSticker(ctx context.Context, to, path string) error {
	chatID, err := parseChat(to)
	if err != nil {
		return err
	}
	sticker := tgbotapi.NewSticker(chatID, tgbotapi.FilePath(path))
	if _, err := b.api.Send(sticker); err != nil {
		return fmt.Errorf("send sticker to %d: %w", chatID, err)
	}
	return nil
}
