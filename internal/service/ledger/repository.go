package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/daehyun-lab/potledger/internal/domain"
	"github.com/daehyun-lab/potledger/internal/settle"
)

var (
	ErrDuplicateHand    = errors.New("hand record already exists")
	ErrDuplicateSession = errors.New("session record already exists")
)

type Repository interface {
	InsertHand(ctx context.Context, hand *domain.HandRecord) (int64, error)
	GetHand(ctx context.Context, id int64, playerHash string) (*domain.HandRecord, error)
	GetHandByUUID(ctx context.Context, handUUID string, playerHash string) (*domain.HandRecord, error)
	GetRecentHands(ctx context.Context, sessionUUID string, limit int) ([]*domain.HandRecord, error)
	InsertSession(ctx context.Context, sess *domain.Session) (int64, error)
	GetSessionByUUID(ctx context.Context, sessionUUID string, playerHash string) (*domain.Session, error)
	ListSessions(ctx context.Context, playerHash string, limit int) ([]*domain.Session, error)
	ListSettlements(ctx context.Context, playerHash string) ([]settle.Settlement, error)
	GetProfile(ctx context.Context, playerHash string, tableHash string) (*domain.PlayerProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertHand(ctx context.Context, hand *domain.HandRecord) (int64, error) {
	if hand == nil {
		return 0, fmt.Errorf("nil hand record payload")
	}

	board, err := json.Marshal(hand.Board)
	if err != nil {
		return 0, fmt.Errorf("marshal board: %w", err)
	}
	seats, err := json.Marshal(hand.Seats)
	if err != nil {
		return 0, fmt.Errorf("marshal seats: %w", err)
	}
	pots, err := json.Marshal(hand.PotAmounts)
	if err != nil {
		return 0, fmt.Errorf("marshal pot_amounts: %w", err)
	}
	winners, err := json.Marshal(hand.Winners)
	if err != nil {
		return 0, fmt.Errorf("marshal winners: %w", err)
	}
	deltas, err := json.Marshal(hand.Deltas)
	if err != nil {
		return 0, fmt.Errorf("marshal deltas: %w", err)
	}

	const query = `
		INSERT INTO hand_records (
			hand_uuid,
			session_uuid,
			player_hash,
			table_hash,
			street,
			board,
			seats,
			pot_amounts,
			winners,
			deltas,
			total_pot,
			played_at
		)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9::jsonb, $10::jsonb, $11, $12)
		ON CONFLICT (hand_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		hand.HandUUID,
		hand.SessionUUID,
		hand.PlayerHash,
		hand.TableHash,
		hand.Street,
		board,
		seats,
		pots,
		winners,
		deltas,
		hand.TotalPot,
		hand.PlayedAt,
	).Scan(&id)
	if err == sql.ErrNoRows || (err == nil && !id.Valid) {
		return 0, ErrDuplicateHand
	}
	if err != nil {
		return 0, fmt.Errorf("insert hand record: %w", err)
	}
	return id.Int64, nil
}

const handColumns = `
		id,
		hand_uuid,
		session_uuid,
		player_hash,
		table_hash,
		street,
		board,
		seats,
		pot_amounts,
		winners,
		deltas,
		total_pot,
		played_at`

func scanHand(row interface{ Scan(...any) error }) (*domain.HandRecord, error) {
	var (
		hand        domain.HandRecord
		boardJSON   []byte
		seatsJSON   []byte
		potsJSON    []byte
		winnersJSON []byte
		deltasJSON  []byte
	)
	if err := row.Scan(
		&hand.ID,
		&hand.HandUUID,
		&hand.SessionUUID,
		&hand.PlayerHash,
		&hand.TableHash,
		&hand.Street,
		&boardJSON,
		&seatsJSON,
		&potsJSON,
		&winnersJSON,
		&deltasJSON,
		&hand.TotalPot,
		&hand.PlayedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(boardJSON, &hand.Board); err != nil {
		return nil, fmt.Errorf("unmarshal board: %w", err)
	}
	if err := json.Unmarshal(seatsJSON, &hand.Seats); err != nil {
		return nil, fmt.Errorf("unmarshal seats: %w", err)
	}
	if err := json.Unmarshal(potsJSON, &hand.PotAmounts); err != nil {
		return nil, fmt.Errorf("unmarshal pot_amounts: %w", err)
	}
	if err := json.Unmarshal(winnersJSON, &hand.Winners); err != nil {
		return nil, fmt.Errorf("unmarshal winners: %w", err)
	}
	if err := json.Unmarshal(deltasJSON, &hand.Deltas); err != nil {
		return nil, fmt.Errorf("unmarshal deltas: %w", err)
	}
	return &hand, nil
}

func (r *repository) GetHand(ctx context.Context, id int64, playerHash string) (*domain.HandRecord, error) {
	query := `SELECT` + handColumns + `
		FROM hand_records
		WHERE id = $1 AND player_hash = $2`

	hand, err := scanHand(r.db.QueryRowContext(ctx, query, id, playerHash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select hand record: %w", err)
	}
	return hand, nil
}

func (r *repository) GetHandByUUID(ctx context.Context, handUUID string, playerHash string) (*domain.HandRecord, error) {
	query := `SELECT` + handColumns + `
		FROM hand_records
		WHERE hand_uuid = $1 AND player_hash = $2`

	hand, err := scanHand(r.db.QueryRowContext(ctx, query, handUUID, playerHash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select hand record by uuid: %w", err)
	}
	return hand, nil
}

func (r *repository) GetRecentHands(ctx context.Context, sessionUUID string, limit int) ([]*domain.HandRecord, error) {
	if limit <= 0 {
		limit = fallbackHistoryLimit
	}
	query := `SELECT` + handColumns + `
		FROM hand_records
		WHERE session_uuid = $1
		ORDER BY played_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, sessionUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("select hand records: %w", err)
	}
	defer rows.Close()

	hands := make([]*domain.HandRecord, 0, limit)
	for rows.Next() {
		hand, err := scanHand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hand record: %w", err)
		}
		hands = append(hands, hand)
	}
	return hands, rows.Err()
}

func (r *repository) InsertSession(ctx context.Context, sess *domain.Session) (int64, error) {
	if sess == nil {
		return 0, fmt.Errorf("nil session payload")
	}

	const query = `
		INSERT INTO poker_sessions (
			session_uuid,
			player_hash,
			table_hash,
			game_type,
			stakes,
			buy_in,
			cash_out,
			net,
			hands_played,
			started_at,
			ended_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err := r.db.QueryRowContext(
		ctx,
		query,
		sess.SessionUUID,
		sess.PlayerHash,
		sess.TableHash,
		sess.GameType,
		sess.Stakes,
		sess.BuyIn,
		sess.CashOut,
		sess.Net,
		sess.HandsPlayed,
		sess.StartedAt,
		sess.EndedAt,
	).Scan(&id)
	if err == sql.ErrNoRows || (err == nil && !id.Valid) {
		return 0, ErrDuplicateSession
	}
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return id.Int64, nil
}

const sessionColumns = `
		id,
		session_uuid,
		player_hash,
		table_hash,
		game_type,
		stakes,
		buy_in,
		cash_out,
		net,
		hands_played,
		started_at,
		ended_at`

func scanSession(row interface{ Scan(...any) error }) (*domain.Session, error) {
	var sess domain.Session
	if err := row.Scan(
		&sess.ID,
		&sess.SessionUUID,
		&sess.PlayerHash,
		&sess.TableHash,
		&sess.GameType,
		&sess.Stakes,
		&sess.BuyIn,
		&sess.CashOut,
		&sess.Net,
		&sess.HandsPlayed,
		&sess.StartedAt,
		&sess.EndedAt,
	); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) GetSessionByUUID(ctx context.Context, sessionUUID string, playerHash string) (*domain.Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM poker_sessions
		WHERE session_uuid = $1 AND player_hash = $2`

	sess, err := scanSession(r.db.QueryRowContext(ctx, query, sessionUUID, playerHash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

func (r *repository) ListSessions(ctx context.Context, playerHash string, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = fallbackHistoryLimit
	}
	query := `SELECT` + sessionColumns + `
		FROM poker_sessions
		WHERE player_hash = $1
		ORDER BY ended_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerHash, limit)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*domain.Session, 0, limit)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (r *repository) ListSettlements(ctx context.Context, playerHash string) ([]settle.Settlement, error) {
	const query = `
		SELECT session_uuid, player_hash, buy_in, cash_out, started_at, ended_at
		FROM poker_sessions
		WHERE player_hash = $1`

	rows, err := r.db.QueryContext(ctx, query, playerHash)
	if err != nil {
		return nil, fmt.Errorf("select settlements: %w", err)
	}
	defer rows.Close()

	var settlements []settle.Settlement
	for rows.Next() {
		var s settle.Settlement
		if err := rows.Scan(&s.SessionUUID, &s.PlayerHash, &s.BuyIn, &s.CashOut, &s.StartTime, &s.EndTime); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

func (r *repository) GetProfile(ctx context.Context, playerHash string, tableHash string) (*domain.PlayerProfile, error) {
	const query = `
		SELECT
			player_hash,
			table_hash,
			sessions_played,
			hands_recorded,
			winning_sessions,
			losing_sessions,
			preferred_stakes,
			last_stakes,
			last_played_at,
			updated_at,
			created_at
		FROM player_profiles
		WHERE player_hash = $1 AND table_hash = $2`

	var profile domain.PlayerProfile
	err := r.db.QueryRowContext(ctx, query, playerHash, tableHash).Scan(
		&profile.PlayerHash,
		&profile.TableHash,
		&profile.SessionsPlayed,
		&profile.HandsRecorded,
		&profile.WinningSessions,
		&profile.LosingSessions,
		&profile.PreferredStakes,
		&profile.LastStakes,
		&profile.LastPlayedAt,
		&profile.UpdatedAt,
		&profile.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select player profile: %w", err)
	}
	return &profile, nil
}

func (r *repository) UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	if profile == nil {
		return fmt.Errorf("nil profile payload")
	}

	const query = `
		INSERT INTO player_profiles (
			player_hash,
			table_hash,
			sessions_played,
			hands_recorded,
			winning_sessions,
			losing_sessions,
			preferred_stakes,
			last_stakes,
			last_played_at,
			updated_at,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (player_hash, table_hash) DO UPDATE SET
			sessions_played = EXCLUDED.sessions_played,
			hands_recorded = EXCLUDED.hands_recorded,
			winning_sessions = EXCLUDED.winning_sessions,
			losing_sessions = EXCLUDED.losing_sessions,
			preferred_stakes = EXCLUDED.preferred_stakes,
			last_stakes = EXCLUDED.last_stakes,
			last_played_at = EXCLUDED.last_played_at,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(
		ctx,
		query,
		profile.PlayerHash,
		profile.TableHash,
		profile.SessionsPlayed,
		profile.HandsRecorded,
		profile.WinningSessions,
		profile.LosingSessions,
		profile.PreferredStakes,
		profile.LastStakes,
		profile.LastPlayedAt,
		profile.UpdatedAt,
		profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert player profile: %w", err)
	}
	return nil
}
