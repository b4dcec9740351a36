package ledgerpresenter

import (
	"github.com/daehyun-lab/potledger/internal/domain"
	"github.com/daehyun-lab/potledger/internal/pot"
	svc "github.com/daehyun-lab/potledger/internal/service/ledger"
	"github.com/daehyun-lab/potledger/pkg/ledgerdto"
)

func ToDTOState(s *svc.SessionState) *ledgerdto.SessionState {
	if s == nil {
		return nil
	}
	return &ledgerdto.SessionState{
		SessionUUID: s.SessionUUID,
		PlayerName:  s.PlayerName,
		GameType:    s.GameType,
		Stakes:      s.Stakes,
		BuyIn:       s.BuyIn,
		ChipDelta:   s.ChipDelta,
		HandsPlayed: s.HandsPlayed,
		StartedAt:   s.StartedAt,
		UpdatedAt:   s.UpdatedAt,
		Profile:     ToDTOProfile(s.Profile),
	}
}

func ToDTOBreakdown(set *pot.PotSet) *ledgerdto.PotBreakdown {
	if set == nil {
		return nil
	}
	return &ledgerdto.PotBreakdown{
		Pots:    toPotViews(set.Pots),
		Refunds: copyDeltaMap(set.Refunds),
		Total:   set.Total(),
	}
}

func ToDTOShowdown(m *svc.ShowdownSummary) *ledgerdto.ShowdownSummary {
	if m == nil {
		return nil
	}
	return &ledgerdto.ShowdownSummary{
		HandID:   m.HandID,
		HandUUID: m.HandUUID,
		Pots:     toPotViews(m.Pots),
		Deltas:   copyDeltaMap(m.Deltas),
		Refunds:  copyDeltaMap(m.Refunds),
		TotalPot: m.TotalPot,
		Replayed: m.Replayed,
		State:    ToDTOState(m.State),
	}
}

func ToDTOResult(r *svc.SessionResult) *ledgerdto.SessionResult {
	if r == nil {
		return nil
	}
	return &ledgerdto.SessionResult{
		SessionUUID: r.Settlement.SessionUUID,
		BuyIn:       r.Settlement.BuyIn,
		CashOut:     r.Settlement.CashOut,
		Net:         r.Net,
		HandsPlayed: r.HandsPlayed,
		Bankroll:    r.Bankroll,
		StartedAt:   r.Settlement.StartTime,
		EndedAt:     r.Settlement.EndTime,
		Profile:     ToDTOProfile(r.Profile),
	}
}

func ToDTOProfile(p *domain.PlayerProfile) *ledgerdto.PlayerProfile {
	if p == nil {
		return nil
	}
	cp := *p
	return &ledgerdto.PlayerProfile{
		PlayerHash:      cp.PlayerHash,
		TableHash:       cp.TableHash,
		SessionsPlayed:  cp.SessionsPlayed,
		HandsRecorded:   cp.HandsRecorded,
		WinningSessions: cp.WinningSessions,
		LosingSessions:  cp.LosingSessions,
		PreferredStakes: cp.PreferredStakes,
		LastStakes:      cp.LastStakes,
		LastPlayedAt:    cp.LastPlayedAt,
		UpdatedAt:       cp.UpdatedAt,
		CreatedAt:       cp.CreatedAt,
	}
}

func ToDTOSessions(list []*domain.Session) []*ledgerdto.Session {
	out := make([]*ledgerdto.Session, 0, len(list))
	for _, s := range list {
		if s == nil {
			continue
		}
		out = append(out, ToDTOSession(s))
	}
	return out
}

func ToDTOSession(s *domain.Session) *ledgerdto.Session {
	if s == nil {
		return nil
	}
	ss := *s
	return &ledgerdto.Session{
		ID:          ss.ID,
		SessionUUID: ss.SessionUUID,
		PlayerHash:  ss.PlayerHash,
		TableHash:   ss.TableHash,
		GameType:    ss.GameType,
		Stakes:      ss.Stakes,
		BuyIn:       ss.BuyIn,
		CashOut:     ss.CashOut,
		Net:         ss.Net,
		HandsPlayed: ss.HandsPlayed,
		StartedAt:   ss.StartedAt,
		EndedAt:     ss.EndedAt,
	}
}

func ToDTOHands(list []*domain.HandRecord) []*ledgerdto.HandRecord {
	out := make([]*ledgerdto.HandRecord, 0, len(list))
	for _, h := range list {
		if h == nil {
			continue
		}
		out = append(out, ToDTOHand(h))
	}
	return out
}

func ToDTOHand(h *domain.HandRecord) *ledgerdto.HandRecord {
	if h == nil {
		return nil
	}
	hh := *h
	return &ledgerdto.HandRecord{
		ID:          hh.ID,
		HandUUID:    hh.HandUUID,
		SessionUUID: hh.SessionUUID,
		Street:      hh.Street,
		Board:       append([]string(nil), hh.Board...),
		PotAmounts:  append([]int64(nil), hh.PotAmounts...),
		Winners:     copyWinnerMap(hh.Winners),
		Deltas:      copyDeltaMap(hh.Deltas),
		TotalPot:    hh.TotalPot,
		PlayedAt:    hh.PlayedAt,
	}
}

// FromSeatInputs converts caller-supplied seat rows into domain seats.
func FromSeatInputs(list []ledgerdto.SeatInput) []domain.Seat {
	seats := make([]domain.Seat, 0, len(list))
	for _, in := range list {
		seats = append(seats, domain.Seat{
			Number:      in.Number,
			PlayerID:    in.PlayerID,
			Contributed: in.Contributed,
			Folded:      in.Folded,
			AllIn:       in.AllIn,
		})
	}
	return seats
}

func toPotViews(pots []pot.Pot) []ledgerdto.PotView {
	out := make([]ledgerdto.PotView, 0, len(pots))
	for _, p := range pots {
		out = append(out, ledgerdto.PotView{
			Index:    p.Index,
			Amount:   p.Amount,
			Eligible: append([]int(nil), p.Eligible...),
		})
	}
	return out
}

func copyDeltaMap(src map[int]int64) map[int]int64 {
	if src == nil {
		return nil
	}
	out := make(map[int]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copyWinnerMap(src map[int][]int) map[int][]int {
	if src == nil {
		return nil
	}
	out := make(map[int][]int, len(src))
	for k, v := range src {
		out[k] = append([]int(nil), v...)
	}
	return out
}
