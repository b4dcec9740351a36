package ledgerbuilder

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/daehyun-lab/potledger/internal/config"
	"github.com/daehyun-lab/potledger/internal/service/cache"
	svcledger "github.com/daehyun-lab/potledger/internal/service/ledger"
)

type Deps struct {
	Service *svcledger.Service
	Cache   *cache.CacheService
	Repo    svcledger.Repository
	DB      *sql.DB
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Cache (Redis required: active sessions live there)
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required for ledger sessions/cache")
	}
	cconf, perr := parseRedisURL(cfg.RedisURL)
	if perr != nil {
		return nil, fmt.Errorf("parse redis url: %w", perr)
	}
	cacheSvc, err := cache.NewCacheService(*cconf, logger)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	// Repository (DB required)
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for ledger repository")
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// basic pool settings
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	repo := svcledger.NewRepository(db)

	svcCfg := svcledger.Config{
		DefaultGameType: cfg.LedgerGameType,
		DefaultStakes:   cfg.LedgerStakes,
		SessionTTL:      time.Duration(cfg.LedgerSessionTTLSec) * time.Second,
		HistoryLimit:    cfg.LedgerHistoryLimit,
		AllowedTables:   append([]string(nil), cfg.AllowedTables...),
	}

	service, err := svcledger.NewService(cacheSvc, repo, svcCfg, logger)
	if err != nil {
		return nil, err
	}

	return &Deps{Service: service, Cache: cacheSvc, Repo: repo, DB: db}, nil
}

func parseRedisURL(raw string) (*cache.CacheConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	db := 0
	if u.Path != "" {
		p := strings.TrimPrefix(u.Path, "/")
		if p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				db = n
			}
		}
	}
	pass, _ := u.User.Password()
	return &cache.CacheConfig{Host: host, Port: port, Password: pass, DB: db}, nil
}
