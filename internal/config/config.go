package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	GateBaseURL string
	GateWSURL   string

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	RedisURL    string
	DatabaseURL string

	EgressMode   string
	EgressDryrun bool

	AllowedTables []string

	LedgerGameType      string
	LedgerStakes        string
	LedgerSessionTTLSec int
	LedgerHistoryLimit  int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		EgressMode:          "http",
		LedgerGameType:      "NLHE",
		LedgerSessionTTLSec: 43200,
		LedgerHistoryLimit:  10,
	}

	cfg.GateBaseURL = strings.TrimSpace(os.Getenv("GATE_BASE_URL"))
	cfg.GateWSURL = strings.TrimSpace(os.Getenv("GATE_WS_URL"))
	cfg.BotPrefix = strings.TrimSpace(os.Getenv("BOT_PREFIX"))

	cfg.XUserID = strings.TrimSpace(os.Getenv("X_USER_ID"))
	cfg.XUserEmail = strings.TrimSpace(os.Getenv("X_USER_EMAIL"))
	cfg.XSessionID = strings.TrimSpace(os.Getenv("X_SESSION_ID"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("EGRESS_MODE"))); v != "" {
		switch v {
		case "http", "ws", "auto":
			cfg.EgressMode = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("EGRESS_DRYRUN")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EgressDryrun = b
		}
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_TABLES")); v != "" {
		parts := strings.Split(v, ",")
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedTables = append(cfg.AllowedTables, s)
			}
		}
	}

	// Ledger specific
	if v := strings.TrimSpace(os.Getenv("LEDGER_DEFAULT_GAME_TYPE")); v != "" {
		cfg.LedgerGameType = v
	}
	cfg.LedgerStakes = strings.TrimSpace(os.Getenv("LEDGER_DEFAULT_STAKES"))
	if v := strings.TrimSpace(os.Getenv("LEDGER_SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LedgerSessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LEDGER_HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LedgerHistoryLimit = n
		}
	}

	if len(cfg.AllowedTables) == 0 {
		if v := strings.TrimSpace(os.Getenv("LEDGER_ALLOWED_TABLES")); v != "" {
			parts := strings.Split(v, ",")
			for _, p := range parts {
				s := strings.TrimSpace(p)
				if s != "" {
					cfg.AllowedTables = append(cfg.AllowedTables, s)
				}
			}
		}
	}

	if cfg.GateBaseURL == "" {
		return nil, errors.New("GATE_BASE_URL is required")
	}
	if cfg.GateWSURL == "" {
		return nil, errors.New("GATE_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}

	return cfg, nil
}
