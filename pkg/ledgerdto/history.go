package ledgerdto

import "time"

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
	StartedAt   time.Time
	EndedAt     time.Time
}

type HandRecord struct {
	ID          int64
	HandUUID    string
	SessionUUID string
	Street      string
	Board       []string
	PotAmounts  []int64
	Winners     map[int][]int
	Deltas      map[int]int64
	TotalPot    int64
	PlayedAt    time.Time
}
