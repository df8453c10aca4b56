package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"arepazo-bot/bot"
	"arepazo-bot/config"
	"arepazo-bot/db"
	"arepazo-bot/dialog"
	"arepazo-bot/kitchen"
	"arepazo-bot/services"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.Telegram.Token == "" {
		fmt.Fprintln(os.Stderr, "TOKEN not set")
		os.Exit(1)
	}

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	// Optional auto-migration (useful in production and for fresh DBs).
	// Set AUTO_MIGRATE=1 (or "true") to enable.
	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(context.Background(), false); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	loc, err := time.LoadLocation(cfg.Restaurant.Timezone)
	if err != nil {
		fmt.Fprintln(os.Stderr, "timezone:", err)
		os.Exit(1)
	}

	sessions, err := newSessionStore(cfg.Session)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sessions:", err)
		os.Exit(1)
	}

	catalog := services.NewCatalog(cfg.Restaurant.MenuTTL)
	orders := services.NewOrderStore()
	history := services.NewHistoryStore()
	verifications := services.NewVerificationLog()

	b, err := bot.New(cfg, verifications)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}

	timers := dialog.NewInactivitySupervisor(cfg.Restaurant.WarnAfter, cfg.Restaurant.EndAfter)
	engine := dialog.New(dialog.Config{
		AdminID:          strconv.FormatInt(cfg.Telegram.AdminChatID, 10),
		PayNumber:        cfg.Restaurant.PayNumber,
		Address:          cfg.Restaurant.Address,
		MapsLink:         cfg.Restaurant.MapsLink,
		WelcomeImagePath: cfg.Restaurant.WelcomeImagePath,
		StickerPath:      cfg.Restaurant.StickerPath,
		Location:         loc,
		ProofReminder:    cfg.Restaurant.ProofReminder,
		PendingNotice:    cfg.Restaurant.PendingNotice,
	}, sessions, catalog, orders, history, verifications, b, timers)
	b.SetEngine(engine)

	kitchenSrv := kitchen.NewServer(cfg.Kitchen, orders, loc)
	go kitchenSrv.Poll(context.Background(), cfg.Kitchen.PollInterval)
	go func() {
		log.Printf("kitchen API listening on %s", cfg.Kitchen.Addr)
		if err := http.ListenAndServe(cfg.Kitchen.Addr, kitchenSrv.Routes()); err != nil {
			log.Printf("kitchen API: %v", err)
		}
	}()

	fmt.Println("Bot started.")
	b.Start()
}

func newSessionStore(cfg config.SessionConfig) (dialog.SessionStore, error) {
	switch cfg.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return dialog.NewRedisStore(rdb), nil
	case "", "memory":
		return dialog.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
