package ledgerdto

import "time"

// PotView is one layer of the pot breakdown: the main pot carries Index 0.
type PotView struct {
	Index    int
	Amount   int64
	Eligible []int
}

// PotBreakdown is the built pot structure before winners are assigned.
type PotBreakdown struct {
	Pots    []PotView
	Refunds map[int]int64
	Total   int64
}

type SessionState struct {
	SessionUUID string
	PlayerName  string
	GameType    string
	Stakes      string
	BuyIn       int64
	ChipDelta   int64
	HandsPlayed int
	StartedAt   time.Time
	UpdatedAt   time.Time
	Profile     *PlayerProfile
}

// ShowdownSummary reports one settled hand back to the table.
type ShowdownSummary struct {
	HandID   int64
	HandUUID string
	Pots     []PotView
	Deltas   map[int]int64
	Refunds  map[int]int64
	TotalPot int64
	Replayed bool
	State    *SessionState
}

// SessionResult is the closing summary of a sitting.
type SessionResult struct {
	SessionUUID string
	BuyIn       int64
	CashOut     int64
	Net         int64
	HandsPlayed int
	Bankroll    int64
	StartedAt   time.Time
	EndedAt     time.Time
	Profile     *PlayerProfile
}
