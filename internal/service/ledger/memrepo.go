package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/daehyun-lab/potledger/internal/domain"
	"github.com/daehyun-lab/potledger/internal/settle"
)

// memrepo is a development-only in-memory repository used when no DB is
// configured, and the backing store for service tests.
type memrepo struct {
	mu sync.RWMutex

	nextHandID    int64
	nextSessionID int64

	handsByID      map[int64]*domain.HandRecord
	handsByUUID    map[string]*domain.HandRecord
	handsBySession map[string][]*domain.HandRecord

	sessionsByUUID   map[string]*domain.Session
	sessionsByPlayer map[string][]*domain.Session

	profiles map[string]*domain.PlayerProfile
}

func NewMemoryRepository() Repository {
	return &memrepo{
		handsByID:        make(map[int64]*domain.HandRecord),
		handsByUUID:      make(map[string]*domain.HandRecord),
		handsBySession:   make(map[string][]*domain.HandRecord),
		sessionsByUUID:   make(map[string]*domain.Session),
		sessionsByPlayer: make(map[string][]*domain.Session),
		profiles:         make(map[string]*domain.PlayerProfile),
	}
}

func (m *memrepo) InsertHand(ctx context.Context, hand *domain.HandRecord) (int64, error) {
	if hand == nil {
		return 0, ErrDuplicateHand
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.handsByUUID[hand.HandUUID]; exists {
		return 0, ErrDuplicateHand
	}

	m.nextHandID++
	stored := *hand
	stored.ID = m.nextHandID

	m.handsByID[stored.ID] = &stored
	m.handsByUUID[stored.HandUUID] = &stored
	m.handsBySession[stored.SessionUUID] = append(m.handsBySession[stored.SessionUUID], &stored)

	return stored.ID, nil
}

func (m *memrepo) GetHand(ctx context.Context, id int64, playerHash string) (*domain.HandRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handsByID[id]
	if !ok || h.PlayerHash != playerHash {
		return nil, nil
	}
	out := *h
	return &out, nil
}

func (m *memrepo) GetHandByUUID(ctx context.Context, handUUID string, playerHash string) (*domain.HandRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handsByUUID[strings.TrimSpace(handUUID)]
	if !ok || h.PlayerHash != playerHash {
		return nil, nil
	}
	out := *h
	return &out, nil
}

func (m *memrepo) GetRecentHands(ctx context.Context, sessionUUID string, limit int) ([]*domain.HandRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.handsBySession[sessionUUID]
	if len(list) == 0 {
		return []*domain.HandRecord{}, nil
	}
	items := append([]*domain.HandRecord(nil), list...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].PlayedAt.Equal(items[j].PlayedAt) {
			return items[i].PlayedAt.After(items[j].PlayedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) InsertSession(ctx context.Context, sess *domain.Session) (int64, error) {
	if sess == nil {
		return 0, ErrDuplicateSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessionsByUUID[sess.SessionUUID]; exists {
		return 0, ErrDuplicateSession
	}

	m.nextSessionID++
	stored := *sess
	stored.ID = m.nextSessionID

	m.sessionsByUUID[stored.SessionUUID] = &stored
	m.sessionsByPlayer[stored.PlayerHash] = append(m.sessionsByPlayer[stored.PlayerHash], &stored)

	return stored.ID, nil
}

func (m *memrepo) GetSessionByUUID(ctx context.Context, sessionUUID string, playerHash string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessionsByUUID[strings.TrimSpace(sessionUUID)]
	if !ok || s.PlayerHash != playerHash {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (m *memrepo) ListSessions(ctx context.Context, playerHash string, limit int) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.sessionsByPlayer[playerHash]
	if len(list) == 0 {
		return []*domain.Session{}, nil
	}
	items := append([]*domain.Session(nil), list...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) ListSettlements(ctx context.Context, playerHash string) ([]settle.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var settlements []settle.Settlement
	for _, s := range m.sessionsByPlayer[playerHash] {
		settlements = append(settlements, settle.Settlement{
			SessionUUID: s.SessionUUID,
			PlayerHash:  s.PlayerHash,
			BuyIn:       s.BuyIn,
			CashOut:     s.CashOut,
			StartTime:   s.StartedAt,
			EndTime:     s.EndedAt,
		})
	}
	return settlements, nil
}

func (m *memrepo) GetProfile(ctx context.Context, playerHash string, tableHash string) (*domain.PlayerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[m.profileKey(playerHash, tableHash)]; ok && p != nil {
		out := *p
		return &out, nil
	}
	return nil, nil
}

func (m *memrepo) UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	if profile == nil {
		return nil
	}
	stored := *profile
	m.mu.Lock()
	m.profiles[m.profileKey(profile.PlayerHash, profile.TableHash)] = &stored
	m.mu.Unlock()
	return nil
}

func (m *memrepo) profileKey(playerHash, tableHash string) string {
	return strings.TrimSpace(playerHash) + "|" + strings.TrimSpace(tableHash)
}
