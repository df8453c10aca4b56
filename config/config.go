package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB         DBConfig
	Telegram   TelegramConfig
	Restaurant RestaurantConfig
	Session    SessionConfig
	Kitchen    KitchenConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token       string
	AdminChatID int64 // chat that receives new-order and payment-verification notices
}

type RestaurantConfig struct {
	Timezone         string
	Address          string
	MapsLink         string
	PayNumber        string // Nequi line customers pay to
	WelcomeImagePath string
	StickerPath      string
	MenuTTL          time.Duration
	WarnAfter        time.Duration // inactivity warning
	EndAfter         time.Duration // inactivity termination
	ProofReminder    time.Duration // nudge when the payment proof has not arrived
	PendingNotice    time.Duration // "verification is taking a while" notice
}

type SessionConfig struct {
	Backend   string // "memory" or "redis"
	RedisAddr string
}

type KitchenConfig struct {
	Addr          string
	InvoiceStatus string // status that triggers invoice generation
	InvoiceDir    string
	PollInterval  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	adminChatID, _ := strconv.ParseInt(getEnv("ADMIN_CHAT_ID", "0"), 10, 64)

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "arepazo"),
		},
		Telegram: TelegramConfig{
			Token:       getEnv("TOKEN", ""),
			AdminChatID: adminChatID,
		},
		Restaurant: RestaurantConfig{
			Timezone:         getEnv("RESTAURANT_TZ", "America/Bogota"),
			Address:          getEnv("RESTAURANT_ADDRESS", "Calle 123 #45-67, Viterbo, Caldas"),
			MapsLink:         getEnv("RESTAURANT_MAPS_LINK", "https://www.google.com/maps/@5.0679782,-75.8666766,18z"),
			PayNumber:        getEnv("PAY_NUMBER", ""),
			WelcomeImagePath: getEnv("WELCOME_IMAGE", "logo.jpg"),
			StickerPath:      getEnv("STICKER_PATH", "sticker.webp"),
			MenuTTL:          getDuration("MENU_TTL", 15*time.Minute),
			WarnAfter:        getDuration("INACTIVITY_WARN", 45*time.Minute),
			EndAfter:         getDuration("INACTIVITY_END", 90*time.Minute),
			ProofReminder:    getDuration("PROOF_REMINDER", 3*time.Minute),
			PendingNotice:    getDuration("PENDING_NOTICE", 5*time.Minute),
		},
		Session: SessionConfig{
			Backend:   getEnv("SESSION_BACKEND", "memory"),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kitchen: KitchenConfig{
			Addr:          getEnv("KITCHEN_ADDR", ":3001"),
			InvoiceStatus: getEnv("INVOICE_STATUS", "entregado"),
			InvoiceDir:    getEnv("INVOICE_DIR", "facturas"),
			PollInterval:  getDuration("KITCHEN_POLL", 15*time.Second),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
