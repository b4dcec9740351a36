// Package ledger tracks home-game poker sessions: it runs the pot and
// settlement engine over showdown snapshots, appends immutable hand records,
// and reconciles buy-ins and cash-outs into per-player bankrolls.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daehyun-lab/potledger/internal/domain"
	"github.com/daehyun-lab/potledger/internal/pot"
	"github.com/daehyun-lab/potledger/internal/service/cache"
	"github.com/daehyun-lab/potledger/internal/settle"
)

var (
	ErrSessionNotFound   = errors.New("poker session not found")
	ErrSessionInProgress = errors.New("poker session already in progress")
	ErrHandNotFound      = errors.New("hand record not found")
	ErrProfileNotFound   = errors.New("player profile not found")
	ErrTableNotAllowed   = errors.New("table not allowed")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

const (
	profileCacheTTL      = 6 * time.Hour
	maxHistoryLimit      = 50
	playerLabelRuneLimit = 24
	defaultGameTypeLabel = "NLHE"
	fallbackHistoryLimit = 10
)

// SessionMeta identifies the caller: the table the message came from and who
// sent it. The engine never sees raw identifiers, only their hashes.
type SessionMeta struct {
	SessionID string
	Table     string
	Sender    string
}

type sessionIdentity struct {
	SessionID  string
	TableHash  string
	PlayerHash string
}

type Config struct {
	DefaultGameType string
	DefaultStakes   string
	SessionTTL      time.Duration
	HistoryLimit    int
	AllowedTables   []string
}

type Service struct {
	cache         *cache.CacheService
	repo          Repository
	cfg           Config
	allowedTables map[string]struct{}
	logger        *zap.Logger
}

// sessionPayload is the cached running state of an active session. Revision
// increments on every write so the persistence collaborator can apply
// compare-and-set when two callers race to end the same session.
type sessionPayload struct {
	SessionUUID string    `json:"session_uuid"`
	PlayerHash  string    `json:"player_hash"`
	TableHash   string    `json:"table_hash"`
	PlayerName  string    `json:"player_name,omitempty"`
	GameType    string    `json:"game_type"`
	Stakes      string    `json:"stakes"`
	BuyIn       int64     `json:"buy_in"`
	ChipDelta   int64     `json:"chip_delta"`
	HandsPlayed int       `json:"hands_played"`
	Revision    int64     `json:"revision"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionState is the caller-facing snapshot of an active session.
type SessionState struct {
	SessionUUID string
	PlayerHash  string
	TableHash   string
	PlayerName  string
	GameType    string
	Stakes      string
	BuyIn       int64
	ChipDelta   int64
	HandsPlayed int
	StartedAt   time.Time
	UpdatedAt   time.Time
	Profile     *domain.PlayerProfile
}

type StartOptions struct {
	BuyIn    int64
	GameType string
	Stakes   string
}

// ShowdownInput is one hand's settlement request: the seat snapshot plus the
// externally collected winner assignment. HandUUID may be supplied by the
// caller to make replays idempotent; when empty a fresh one is generated.
type ShowdownInput struct {
	HandUUID string
	Street   string
	Board    []string
	HeroSeat int
	Seats    []domain.Seat
	Winners  settle.Assignment
}

type ShowdownSummary struct {
	HandID   int64
	HandUUID string
	Pots     []pot.Pot
	Deltas   map[int]int64
	Refunds  map[int]int64
	TotalPot int64
	Replayed bool
	State    *SessionState
}

type EndInput struct {
	BuyIn   *int64
	CashOut *int64
}

type SessionResult struct {
	Settlement  settle.Settlement
	Net         int64
	HandsPlayed int
	Bankroll    int64
	Profile     *domain.PlayerProfile
}

func NewService(cacheSvc *cache.CacheService, repo Repository, cfg Config, logger *zap.Logger) (*Service, error) {
	if cacheSvc == nil {
		return nil, fmt.Errorf("cache service is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = fallbackHistoryLimit
	}
	if strings.TrimSpace(cfg.DefaultGameType) == "" {
		cfg.DefaultGameType = defaultGameTypeLabel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allowedTables := make(map[string]struct{})
	for _, table := range cfg.AllowedTables {
		normalized := strings.ToLower(strings.TrimSpace(table))
		if normalized == "" {
			continue
		}
		allowedTables[normalized] = struct{}{}
	}

	return &Service{
		cache:         cacheSvc,
		repo:          repo,
		cfg:           cfg,
		allowedTables: allowedTables,
		logger:        logger,
	}, nil
}

// StartSession opens a new sitting for the sender at the table. If one is
// already active its state is returned together with ErrSessionInProgress.
func (s *Service) StartSession(ctx context.Context, meta SessionMeta, opts StartOptions) (*SessionState, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}
	if opts.BuyIn < 0 {
		return nil, fmt.Errorf("%w: buy-in %d", ErrInvalidAmount, opts.BuyIn)
	}

	identity := deriveIdentity(meta)

	existing, err := s.loadSession(ctx, identity.SessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		state := s.stateFromPayload(existing)
		if profile, profErr := s.fetchProfile(ctx, identity, true); profErr == nil {
			state.Profile = profile
		}
		return state, ErrSessionInProgress
	}

	gameType := strings.TrimSpace(opts.GameType)
	if gameType == "" {
		gameType = s.cfg.DefaultGameType
	}
	stakes := strings.TrimSpace(opts.Stakes)
	if stakes == "" {
		stakes = s.cfg.DefaultStakes
	}

	payload := &sessionPayload{
		SessionUUID: uuid.NewString(),
		PlayerHash:  identity.PlayerHash,
		TableHash:   identity.TableHash,
		PlayerName:  normalizePlayerLabel(meta.Sender),
		GameType:    gameType,
		Stakes:      stakes,
		BuyIn:       opts.BuyIn,
		StartedAt:   time.Now(),
	}
	if err := s.saveSession(ctx, identity.SessionID, payload); err != nil {
		return nil, err
	}

	s.logger.Info("session started",
		zap.String("session_uuid", payload.SessionUUID),
		zap.String("stakes", stakes),
		zap.Int64("buy_in", opts.BuyIn),
	)

	state := s.stateFromPayload(payload)
	if profile, profErr := s.fetchProfile(ctx, identity, true); profErr == nil {
		state.Profile = profile
	}
	return state, nil
}

// AddBuyIn tops up the active session's total commitment (a rebuy or add-on).
func (s *Service) AddBuyIn(ctx context.Context, meta SessionMeta, amount int64) (*SessionState, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: rebuy %d", ErrInvalidAmount, amount)
	}

	identity := deriveIdentity(meta)
	payload, err := s.loadSession(ctx, identity.SessionID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrSessionNotFound
	}

	payload.BuyIn += amount
	if err := s.saveSession(ctx, identity.SessionID, payload); err != nil {
		return nil, err
	}
	return s.stateFromPayload(payload), nil
}

// Status returns the active session's running state.
func (s *Service) Status(ctx context.Context, meta SessionMeta) (*SessionState, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	payload, err := s.loadSession(ctx, identity.SessionID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrSessionNotFound
	}
	state := s.stateFromPayload(payload)
	if profile, profErr := s.fetchProfile(ctx, identity, true); profErr == nil {
		state.Profile = profile
	}
	return state, nil
}

// PreviewPots runs the pot builder alone so the collaborator can show the pot
// breakdown while it solicits winner selections.
func (s *Service) PreviewPots(meta SessionMeta, seats []domain.Seat) (*pot.PotSet, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}
	return pot.BuildPots(seats)
}

// RecordShowdown settles one hand: builds the pots, validates and applies the
// winner assignment, appends the immutable hand record, and folds the per-seat
// deltas into the session's running state. Replaying the same HandUUID returns
// the stored record without double-counting.
func (s *Service) RecordShowdown(ctx context.Context, meta SessionMeta, in ShowdownInput) (*ShowdownSummary, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}

	identity := deriveIdentity(meta)
	payload, err := s.loadSession(ctx, identity.SessionID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrSessionNotFound
	}

	set, err := pot.BuildPots(in.Seats)
	if err != nil {
		return nil, err
	}
	deltas, err := settle.SettlePots(set, in.Winners)
	if err != nil {
		return nil, err
	}

	handUUID := strings.TrimSpace(in.HandUUID)
	if handUUID == "" {
		handUUID = uuid.NewString()
	}

	amounts := make([]int64, len(set.Pots))
	for i, p := range set.Pots {
		amounts[i] = p.Amount
	}
	record := &domain.HandRecord{
		HandUUID:    handUUID,
		SessionUUID: payload.SessionUUID,
		PlayerHash:  identity.PlayerHash,
		TableHash:   identity.TableHash,
		Street:      strings.ToLower(strings.TrimSpace(in.Street)),
		Board:       append([]string(nil), in.Board...),
		Seats:       append([]domain.Seat(nil), in.Seats...),
		PotAmounts:  amounts,
		Winners:     in.Winners,
		Deltas:      deltas,
		TotalPot:    set.Total(),
		PlayedAt:    time.Now(),
	}

	handID, err := s.repo.InsertHand(ctx, record)
	if err != nil {
		if errors.Is(err, ErrDuplicateHand) {
			existing, fetchErr := s.repo.GetHandByUUID(ctx, handUUID, identity.PlayerHash)
			if fetchErr != nil || existing == nil {
				return nil, err
			}
			return &ShowdownSummary{
				HandID:   existing.ID,
				HandUUID: existing.HandUUID,
				Deltas:   existing.Deltas,
				TotalPot: existing.TotalPot,
				Replayed: true,
				State:    s.stateFromPayload(payload),
			}, nil
		}
		return nil, err
	}

	heroDelta := deltas[heroSeat(in, identity.PlayerHash)] // zero when no hero seat is bound
	payload.HandsPlayed++
	payload.ChipDelta += heroDelta
	if err := s.saveSession(ctx, identity.SessionID, payload); err != nil {
		return nil, err
	}

	s.logger.Info("showdown settled",
		zap.String("hand_uuid", handUUID),
		zap.String("session_uuid", payload.SessionUUID),
		zap.Int("pots", len(set.Pots)),
		zap.Int64("total_pot", set.Total()),
	)

	return &ShowdownSummary{
		HandID:   handID,
		HandUUID: handUUID,
		Pots:     set.Pots,
		Deltas:   deltas,
		Refunds:  set.Refunds,
		TotalPot: set.Total(),
		State:    s.stateFromPayload(payload),
	}, nil
}

// EndSession closes the active sitting: it reconciles buy-in and cash-out into
// a settlement, persists the session record, updates the player's counters, and
// recomputes the bankroll from all settled sessions.
func (s *Service) EndSession(ctx context.Context, meta SessionMeta, in EndInput) (*SessionResult, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}

	identity := deriveIdentity(meta)
	payload, err := s.loadSession(ctx, identity.SessionID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	sess := domain.Session{
		SessionUUID: payload.SessionUUID,
		PlayerHash:  identity.PlayerHash,
		TableHash:   identity.TableHash,
		GameType:    payload.GameType,
		Stakes:      payload.Stakes,
		BuyIn:       payload.BuyIn,
		HandsPlayed: payload.HandsPlayed,
		StartedAt:   payload.StartedAt,
	}
	settlement, err := settle.CloseSession(sess, settle.CloseInput{
		BuyIn:     in.BuyIn,
		CashOut:   in.CashOut,
		StartTime: payload.StartedAt,
		EndTime:   now,
	})
	if err != nil {
		return nil, err
	}

	sess.BuyIn = settlement.BuyIn
	sess.CashOut = settlement.CashOut
	sess.Net = settlement.Net()
	sess.Active = false
	sess.EndedAt = now

	if _, err := s.repo.InsertSession(ctx, &sess); err != nil {
		if !errors.Is(err, ErrDuplicateSession) {
			return nil, err
		}
		// Lost the race to a concurrent close: the first writer's record stands.
		stored, fetchErr := s.repo.GetSessionByUUID(ctx, sess.SessionUUID, identity.PlayerHash)
		if fetchErr != nil || stored == nil {
			return nil, err
		}
		sess = *stored
		settlement = settle.Settlement{
			SessionUUID: stored.SessionUUID,
			PlayerHash:  stored.PlayerHash,
			BuyIn:       stored.BuyIn,
			CashOut:     stored.CashOut,
			StartTime:   stored.StartedAt,
			EndTime:     stored.EndedAt,
		}
	}

	profile, err := s.applySessionResult(ctx, identity, payload, sess)
	if err != nil {
		return nil, err
	}

	settlements, err := s.repo.ListSettlements(ctx, identity.PlayerHash)
	if err != nil {
		return nil, err
	}
	bankroll := settle.NetResult(settlements)

	if err := s.deleteSession(ctx, identity.SessionID); err != nil {
		s.logger.Warn("failed to delete ended session from cache", zap.Error(err))
	}

	s.logger.Info("session ended",
		zap.String("session_uuid", sess.SessionUUID),
		zap.Int64("net", settlement.Net()),
		zap.Int64("bankroll", bankroll),
		zap.Int("hands", sess.HandsPlayed),
	)

	return &SessionResult{
		Settlement:  settlement,
		Net:         settlement.Net(),
		HandsPlayed: sess.HandsPlayed,
		Bankroll:    bankroll,
		Profile:     profile,
	}, nil
}

// History lists the player's most recent settled sessions.
func (s *Service) History(ctx context.Context, meta SessionMeta, limit int) ([]*domain.Session, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	identity := deriveIdentity(meta)
	return s.repo.ListSessions(ctx, identity.PlayerHash, limit)
}

// Hands lists the hand records of one session, latest first.
func (s *Service) Hands(ctx context.Context, meta SessionMeta, sessionUUID string, limit int) ([]*domain.HandRecord, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.repo.GetRecentHands(ctx, sessionUUID, limit)
}

// Hand fetches a single hand record owned by the caller.
func (s *Service) Hand(ctx context.Context, meta SessionMeta, id int64) (*domain.HandRecord, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	hand, err := s.repo.GetHand(ctx, id, identity.PlayerHash)
	if err != nil {
		return nil, err
	}
	if hand == nil {
		return nil, ErrHandNotFound
	}
	return hand, nil
}

// Profile returns the player's stored counters.
func (s *Service) Profile(ctx context.Context, meta SessionMeta) (*domain.PlayerProfile, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	profile, err := s.fetchProfile(ctx, identity, true)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// Bankroll recomputes the player's net result across all settled sessions. It
// is a pure projection over the persisted settlements, never a cached total.
func (s *Service) Bankroll(ctx context.Context, meta SessionMeta) (int64, error) {
	if err := s.ensureTableAllowed(meta); err != nil {
		return 0, err
	}
	identity := deriveIdentity(meta)
	settlements, err := s.repo.ListSettlements(ctx, identity.PlayerHash)
	if err != nil {
		return 0, err
	}
	return settle.NetResult(settlements), nil
}

func (s *Service) applySessionResult(ctx context.Context, identity sessionIdentity, payload *sessionPayload, sess domain.Session) (*domain.PlayerProfile, error) {
	profile, err := s.fetchProfile(ctx, identity, false)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}
	now := sess.EndedAt
	if profile == nil {
		profile = &domain.PlayerProfile{
			PlayerHash: identity.PlayerHash,
			TableHash:  identity.TableHash,
			CreatedAt:  now,
		}
	}
	profile.SessionsPlayed++
	profile.HandsRecorded += sess.HandsPlayed
	switch {
	case sess.Net > 0:
		profile.WinningSessions++
	case sess.Net < 0:
		profile.LosingSessions++
	}
	profile.LastStakes = sess.Stakes
	profile.LastPlayedAt = now
	profile.UpdatedAt = now

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.cacheProfile(ctx, identity, profile)
	return profile, nil
}

func (s *Service) ensureTableAllowed(meta SessionMeta) error {
	if len(s.allowedTables) == 0 {
		return nil
	}
	table := strings.ToLower(strings.TrimSpace(meta.Table))
	if table == "" {
		table = "unknown-table"
	}
	if _, ok := s.allowedTables[table]; ok {
		return nil
	}
	s.logger.Info("table access denied",
		zap.String("table", table),
		zap.String("sender", strings.TrimSpace(meta.Sender)),
	)
	return ErrTableNotAllowed
}

func (s *Service) sessionKey(sessionID string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(sessionID)))
	return "ledger:sessions:" + hex.EncodeToString(hash[:])
}

func (s *Service) profileCacheKey(identity sessionIdentity) string {
	return "ledger:profile:" + identity.PlayerHash + ":" + identity.TableHash
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*sessionPayload, error) {
	payload := &sessionPayload{}
	if err := s.cache.Get(ctx, s.sessionKey(sessionID), payload); err != nil {
		return nil, err
	}
	if payload.SessionUUID == "" {
		return nil, nil
	}
	return payload, nil
}

func (s *Service) saveSession(ctx context.Context, sessionID string, payload *sessionPayload) error {
	if payload == nil {
		return fmt.Errorf("cannot save nil session payload")
	}
	payload.Revision++
	payload.UpdatedAt = time.Now()
	return s.cache.Set(ctx, s.sessionKey(sessionID), payload, s.cfg.SessionTTL)
}

func (s *Service) deleteSession(ctx context.Context, sessionID string) error {
	return s.cache.Del(ctx, s.sessionKey(sessionID))
}

func (s *Service) fetchProfile(ctx context.Context, identity sessionIdentity, allowCache bool) (*domain.PlayerProfile, error) {
	if !allowCache {
		profile, err := s.repo.GetProfile(ctx, identity.PlayerHash, identity.TableHash)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, ErrProfileNotFound
		}
		s.cacheProfile(ctx, identity, profile)
		return profile, nil
	}

	profile := &domain.PlayerProfile{}
	if err := s.cache.Get(ctx, s.profileCacheKey(identity), profile); err != nil {
		return nil, err
	}
	if profile.PlayerHash != "" {
		return profile, nil
	}

	stored, err := s.repo.GetProfile(ctx, identity.PlayerHash, identity.TableHash)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrProfileNotFound
	}
	s.cacheProfile(ctx, identity, stored)
	return stored, nil
}

func (s *Service) cacheProfile(ctx context.Context, identity sessionIdentity, profile *domain.PlayerProfile) {
	if profile == nil {
		return
	}
	if err := s.cache.Set(ctx, s.profileCacheKey(identity), profile, profileCacheTTL); err != nil {
		s.logger.Warn("failed to cache player profile", zap.Error(err))
	}
}

func (s *Service) stateFromPayload(payload *sessionPayload) *SessionState {
	return &SessionState{
		SessionUUID: payload.SessionUUID,
		PlayerHash:  payload.PlayerHash,
		TableHash:   payload.TableHash,
		PlayerName:  payload.PlayerName,
		GameType:    payload.GameType,
		Stakes:      payload.Stakes,
		BuyIn:       payload.BuyIn,
		ChipDelta:   payload.ChipDelta,
		HandsPlayed: payload.HandsPlayed,
		StartedAt:   payload.StartedAt,
		UpdatedAt:   payload.UpdatedAt,
	}
}

// heroSeat resolves the tracked player's seat once, at ingestion: an explicit
// HeroSeat wins, otherwise the seat bound to the player's hash, otherwise 0.
func heroSeat(in ShowdownInput, playerHash string) int {
	if in.HeroSeat > 0 {
		return in.HeroSeat
	}
	for _, seat := range in.Seats {
		if seat.PlayerID != "" && seat.PlayerID == playerHash {
			return seat.Number
		}
	}
	return 0
}

func normalizePlayerLabel(raw string) string {
	cleaned := strings.Join(strings.Fields(strings.TrimSpace(raw)), " ")
	if cleaned == "" {
		return ""
	}
	runes := []rune(cleaned)
	if len(runes) > playerLabelRuneLimit {
		return strings.TrimSpace(string(runes[:playerLabelRuneLimit])) + "..."
	}
	return cleaned
}

func deriveIdentity(meta SessionMeta) sessionIdentity {
	sessionID := strings.ToLower(strings.TrimSpace(meta.SessionID))
	table := strings.ToLower(strings.TrimSpace(meta.Table))
	sender := strings.ToLower(strings.TrimSpace(meta.Sender))

	return sessionIdentity{
		SessionID:  sessionID,
		TableHash:  hashString(table),
		PlayerHash: hashString(table + ":" + sender),
	}
}

func hashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
