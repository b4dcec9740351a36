package settle

import (
	"errors"
	"fmt"
	"time"

	"github.com/daehyun-lab/potledger/internal/domain"
)

var ErrInvalidTimeRange = errors.New("session end time precedes start time")

// CloseInput carries the caller-supplied overrides for ending a session. Nil
// BuyIn falls back to the session's recorded buy-in. Nil CashOut is treated as
// zero: an unspecified cash-out means the player left with nothing, never that
// they broke even. Callers that want break-even must pass the buy-in explicitly.
type CloseInput struct {
	BuyIn     *int64
	CashOut   *int64
	StartTime time.Time
	EndTime   time.Time
}

// Settlement is the plain record produced by closing a session. Persisting it
// and updating the player's aggregate are the storage collaborator's job.
type Settlement struct {
	SessionUUID string
	PlayerHash  string
	BuyIn       int64
	CashOut     int64
	StartTime   time.Time
	EndTime     time.Time
}

// Net returns the signed result of the settlement.
func (s Settlement) Net() int64 {
	return s.CashOut - s.BuyIn
}

// CloseSession reconciles a session into a settlement record. The temporal
// invariant is enforced here because a corrupt end time would silently corrupt
// every downstream bankroll aggregation.
func CloseSession(sess domain.Session, in CloseInput) (Settlement, error) {
	if in.EndTime.Before(in.StartTime) {
		return Settlement{}, fmt.Errorf("%w: start=%s end=%s",
			ErrInvalidTimeRange, in.StartTime.Format(time.RFC3339), in.EndTime.Format(time.RFC3339))
	}

	buyIn := sess.BuyIn
	if in.BuyIn != nil {
		buyIn = *in.BuyIn
	}
	var cashOut int64
	if in.CashOut != nil {
		cashOut = *in.CashOut
	}

	return Settlement{
		SessionUUID: sess.SessionUUID,
		PlayerHash:  sess.PlayerHash,
		BuyIn:       buyIn,
		CashOut:     cashOut,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
	}, nil
}

// NetResult folds a player's settled sessions into a signed bankroll total. The
// fold is stateless and order-independent: re-running it over the same set
// always yields the same value.
func NetResult(settlements []Settlement) int64 {
	var net int64
	for _, s := range settlements {
		net += s.Net()
	}
	return net
}
