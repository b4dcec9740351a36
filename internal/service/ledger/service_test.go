package ledger

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/daehyun-lab/potledger/internal/domain"
	"github.com/daehyun-lab/potledger/internal/service/cache"
	"github.com/daehyun-lab/potledger/internal/settle"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("miniredis port: %v", err)
	}
	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{Host: mr.Host(), Port: port}, nil)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	t.Cleanup(func() { _ = cacheSvc.Close() })

	svc, err := NewService(cacheSvc, NewMemoryRepository(), Config{
		SessionTTL:   time.Hour,
		HistoryLimit: 10,
	}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func testMeta(session string) SessionMeta {
	return SessionMeta{SessionID: session, Table: "friday-game", Sender: "hero"}
}

func TestStartSession_NewAndInProgress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	meta := testMeta("sess-1")

	state, err := svc.StartSession(ctx, meta, StartOptions{BuyIn: 200, Stakes: "1/2"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if state.SessionUUID == "" || state.BuyIn != 200 || state.Stakes != "1/2" {
		t.Fatalf("unexpected state: %+v", state)
	}

	again, err := svc.StartSession(ctx, meta, StartOptions{BuyIn: 500})
	if !errors.Is(err, ErrSessionInProgress) {
		t.Fatalf("expected ErrSessionInProgress, got %v", err)
	}
	if again.SessionUUID != state.SessionUUID {
		t.Fatalf("existing session should be returned, got %q want %q", again.SessionUUID, state.SessionUUID)
	}
	if again.BuyIn != 200 {
		t.Fatalf("second start must not change buy-in: got %d", again.BuyIn)
	}
}

func TestAddBuyIn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	meta := testMeta("sess-rebuy")

	if _, err := svc.StartSession(ctx, meta, StartOptions{BuyIn: 100}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	state, err := svc.AddBuyIn(ctx, meta, 150)
	if err != nil {
		t.Fatalf("AddBuyIn: %v", err)
	}
	if state.BuyIn != 250 {
		t.Fatalf("expected total buy-in 250, got %d", state.BuyIn)
	}

	if _, err := svc.AddBuyIn(ctx, meta, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero rebuy, got %v", err)
	}
}

func TestRecordShowdown_FullFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	meta := testMeta("sess-hand")

	if _, err := svc.StartSession(ctx, meta, StartOptions{BuyIn: 300}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	summary, err := svc.RecordShowdown(ctx, meta, ShowdownInput{
		Street:   "river",
		Board:    []string{"Ah", "Kd", "7c", "2s", "9h"},
		HeroSeat: 2,
		Seats: []domain.Seat{
			{Number: 1, Contributed: 30, AllIn: true},
			{Number: 2, Contributed: 100},
			{Number: 3, Contributed: 30, Folded: true},
		},
		Winners: settle.Assignment{0: {1}, 1: {2}},
	})
	if err != nil {
		t.Fatalf("RecordShowdown: %v", err)
	}
	if summary.TotalPot != 160 {
		t.Errorf("expected total pot 160, got %d", summary.TotalPot)
	}
	if summary.Deltas[1] != 90 || summary.Deltas[2] != 70 {
		t.Errorf("expected deltas {1:90, 2:70}, got %v", summary.Deltas)
	}
	if summary.State.HandsPlayed != 1 {
		t.Errorf("expected 1 hand played, got %d", summary.State.HandsPlayed)
	}
	if summary.State.ChipDelta != 70 {
		t.Errorf("hero (seat 2) running delta should be 70, got %d", summary.State.ChipDelta)
	}

	hands, err := svc.Hands(ctx, meta, summary.State.SessionUUID, 10)
	if err != nil {
		t.Fatalf("Hands: %v", err)
	}
	if len(hands) != 1 || hands[0].HandUUID != summary.HandUUID {
		t.Fatalf("expected one stored hand %q, got %v", summary.HandUUID, hands)
	}
}

func TestRecordShowdown_ReplayIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	meta := testMeta("sess-replay")

	if _, err := svc.StartSession(ctx, meta, StartOptions{BuyIn: 100}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	in := ShowdownInput{
		HandUUID: "hand-fixed",
		Seats: []domain.Seat{
			{Number: 1, Contributed: 50},
			{Number: 2, Contributed: 50},
		},
		Winners: settle.Assignment{0: {1}},
	}
	first, err := svc.RecordShowdown(ctx, meta, in)
	if err != nil {
		t.Fatalf("first RecordShowdown: %v", err)
	}
	second, err := svc.RecordShowdown(ctx, meta, in)
	if err != nil {
		t.Fatalf("replayed RecordShowdown: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("expected replay to be flagged")
	}
	if second.HandID != first.HandID {
		t.Errorf("replay must resolve to the stored hand id: %d != %d", second.HandID, first.HandID)
	}
	if second.State.HandsPlayed != 1 {
		t.Errorf("replay must not double-count hands, got %d", second.State.HandsPlayed)
	}
}

func TestRecordShowdown_IncompleteWinners(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	meta := testMeta("sess-incomplete")

	if _, err := svc.StartSession(ctx, meta, StartOptions{}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	_, err := svc.RecordShowdown(ctx, meta, ShowdownInput{
		Seats: []domain.Seat{
			{Number: 1, Contributed: 30, AllIn: true},
			{Number: 2, Contributed: 80},
			{Number: 3, Contributed: 80},
		},
		Winners: settle.Assignment{1: {2}},
	})
	var incomplete *settle.IncompleteAssignmentError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteAssignmentError, got %v", err)
	}

	// Nothing may be recorded when validation fails.
	state, err := svc.Status(ctx, meta)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state.HandsPlayed != 0 {
		t.Fatalf("failed settlement must not count a hand, got %d", state.HandsPlayed)
	}
}

func TestHand_FetchByIDWithOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	meta := testMeta("sess-hand-read")

	if _, err := svc.StartSession(ctx, meta, StartOptions{BuyIn: 100}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	summary, err := svc.RecordShowdown(ctx, meta, ShowdownInput{
		Seats: []domain.Seat{
			{Number: 1, Contributed: 50},
			{Number: 2, Contributed: 50},
		},
		Winners: settle.Assignment{0: {2}},
	})
	if err != nil {
		t.Fatalf("RecordShowdown: %v", err)
	}

	hand, err := svc.Hand(ctx, meta, summary.HandID)
	if err != nil {
		t.Fatalf("Hand: %v", err)
	}
	if hand.HandUUID != summary.HandUUID || hand.TotalPot != 100 {
		t.Fatalf("unexpected record: %+v", hand)
	}

	if _, err := svc.Hand(ctx, meta, summary.HandID+100); !errors.Is(err, ErrHandNotFound) {
		t.Fatalf("expected ErrHandNotFound for unknown id, got %v", err)
	}

	// Another player's identity must not see the record.
	other := SessionMeta{SessionID: "sess-other", Table: meta.Table, Sender: "villain"}
	if _, err := svc.Hand(ctx, other, summary.HandID); !errors.Is(err, ErrHandNotFound) {
		t.Fatalf("expected ErrHandNotFound across identities, got %v", err)
	}
}

func TestEndSession_SettlesAndAggregates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// First sitting: cash out above the buy-in.
	meta1 := testMeta("sess-a")
	if _, err := svc.StartSession(ctx, meta1, StartOptions{BuyIn: 200}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	cashOut := int64(350)
	res, err := svc.EndSession(ctx, meta1, EndInput{CashOut: &cashOut})
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if res.Net != 150 {
		t.Fatalf("expected net 150, got %d", res.Net)
	}
	if res.Bankroll != 150 {
		t.Fatalf("expected bankroll 150, got %d", res.Bankroll)
	}
	if res.Profile == nil || res.Profile.SessionsPlayed != 1 || res.Profile.WinningSessions != 1 {
		t.Fatalf("unexpected profile: %+v", res.Profile)
	}

	// Second sitting: no cash-out supplied, treated as leaving with nothing.
	meta2 := testMeta("sess-b")
	if _, err := svc.StartSession(ctx, meta2, StartOptions{BuyIn: 100}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	res2, err := svc.EndSession(ctx, meta2, EndInput{})
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if res2.Settlement.CashOut != 0 {
		t.Fatalf("unspecified cash-out must settle as 0, got %d", res2.Settlement.CashOut)
	}
	if res2.Bankroll != 50 {
		t.Fatalf("expected bankroll 150-100=50, got %d", res2.Bankroll)
	}

	// The ended session is gone from the cache.
	if _, err := svc.Status(ctx, meta2); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after end, got %v", err)
	}

	bankroll, err := svc.Bankroll(ctx, meta2)
	if err != nil {
		t.Fatalf("Bankroll: %v", err)
	}
	if bankroll != 50 {
		t.Fatalf("recomputed bankroll mismatch: %d", bankroll)
	}

	history, err := svc.History(ctx, meta1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 settled sessions, got %d", len(history))
	}
}

func TestEndSession_NoActiveSession(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.EndSession(context.Background(), testMeta("missing"), EndInput{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestTableGate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	port, _ := strconv.Atoi(mr.Port())
	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{Host: mr.Host(), Port: port}, nil)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	t.Cleanup(func() { _ = cacheSvc.Close() })

	svc, err := NewService(cacheSvc, NewMemoryRepository(), Config{
		SessionTTL:    time.Hour,
		AllowedTables: []string{"home-table"},
	}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	meta := SessionMeta{SessionID: "s", Table: "strangers", Sender: "x"}
	if _, err := svc.StartSession(context.Background(), meta, StartOptions{}); !errors.Is(err, ErrTableNotAllowed) {
		t.Fatalf("expected ErrTableNotAllowed, got %v", err)
	}

	meta.Table = "Home-Table"
	if _, err := svc.StartSession(context.Background(), meta, StartOptions{}); err != nil {
		t.Fatalf("allowed table rejected: %v", err)
	}
}
