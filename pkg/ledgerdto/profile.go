package ledgerdto

import "time"

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
