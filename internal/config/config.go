package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Odds API (upcoming fixtures + market prices)
	OddsAPIBaseURL string
	OddsAPIKey     string

	// Results API (final scores). Defaults to the odds API scores
	// endpoint; the key falls back to OddsAPIKey when unset.
	ResultsAPIBaseURL string
	ResultsAPIKey     string

	// Storage
	DBPath   string
	ModelDir string

	// Decision thresholds (YAML; DB parameter overrides applied on top)
	ThresholdsPath string

	// Telegram
	TelegramToken   string
	TelegramChatIDs string // comma-separated

	// Bankroll seed used when the ledger is empty
	InitialBankroll float64

	// HTTP
	RequestTimeout time.Duration
	RequestsPerSec float64

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		OddsAPIBaseURL: envStr("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4"),
		OddsAPIKey:     envStr("ODDS_API_KEY", ""),

		ResultsAPIBaseURL: envStr("RESULTS_API_BASE_URL", "https://api.the-odds-api.com/v4"),
		ResultsAPIKey:     envStr("RESULTS_API_KEY", ""),

		DBPath:   envStr("DB_PATH", "data/edgeline.db"),
		ModelDir: envStr("MODEL_DIR", "data/models"),

		ThresholdsPath: envStr("THRESHOLDS_PATH", ""),

		TelegramToken:   envStr("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatIDs: envStr("TELEGRAM_CHAT_IDS", ""),

		InitialBankroll: envFloat("INITIAL_BANKROLL", 1000.0),

		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_SEC", 15)) * time.Second,
		RequestsPerSec: envFloat("REQUESTS_PER_SEC", 2.0),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
