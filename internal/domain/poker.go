package domain

import "time"

// Seat is one table position's state at showdown. Seats are transient: they are
// built from table state for a single hand and discarded once the hand settles.
type Seat struct {
	Number      int
	PlayerID    string
	Contributed int64
	Folded      bool
	AllIn       bool
}

// HandRecord is the immutable record of a completed hand. It is created once at
// resolution and never mutated afterwards.
type HandRecord struct {
	ID          int64
	HandUUID    string
	SessionUUID string
	PlayerHash  string
	TableHash   string
	Street      string
	Board       []string
	Seats       []Seat
	PotAmounts  []int64
	Winners     map[int][]int
	Deltas      map[int]int64
	TotalPot    int64
	PlayedAt    time.Time
}

// Session is a single sitting at the table. CashOut is only meaningful once
// Active is false.
type Session struct {
	ID          int64
	SessionUUID string
	PlayerHash  string
	TableHash   string
	GameType    string
	Stakes      string
	BuyIn       int64
	CashOut     int64
	Net         int64
	HandsPlayed int
	Active      bool
	StartedAt   time.Time
	EndedAt     time.Time
}

// PlayerProfile carries per-player counters kept by the repository. The bankroll
// net result itself is never stored here: it is recomputed from settled sessions
// on demand so edits to historical sessions cannot drift the aggregate.
type PlayerProfile struct {
	PlayerHash      string
	TableHash       string
	SessionsPlayed  int
	HandsRecorded   int
	WinningSessions int
	LosingSessions  int
	PreferredStakes string
	LastStakes      string
	LastPlayedAt    time.Time
	UpdatedAt       time.Time
	CreatedAt       time.Time
}
