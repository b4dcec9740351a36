package ledgerdto

type RequestMeta struct {
	SessionID string
	Table     string
	Sender    string
}

// SeatInput is one seat of a showdown snapshot as supplied by the caller.
type SeatInput struct {
	Number      int    `json:"number"`
	PlayerID    string `json:"player_id,omitempty"`
	Contributed int64  `json:"contributed"`
	Folded      bool   `json:"folded,omitempty"`
	AllIn       bool   `json:"all_in,omitempty"`
}

type StartSessionRequest struct {
	Meta     RequestMeta
	BuyIn    int64
	GameType string
	Stakes   string
}

type StartSessionResponse struct {
	State  *SessionState
	Active bool
}

type RebuyRequest struct {
	Meta   RequestMeta
	Amount int64
}

type RebuyResponse struct {
	State *SessionState
}

type StatusRequest struct {
	Meta RequestMeta
}

type StatusResponse struct {
	State *SessionState
}

type PotPreviewRequest struct {
	Meta  RequestMeta
	Seats []SeatInput
}

type PotPreviewResponse struct {
	Breakdown *PotBreakdown
}

type ShowdownRequest struct {
	Meta     RequestMeta
	HandUUID string
	Street   string
	Board    []string
	HeroSeat int
	Seats    []SeatInput
	Winners  map[int][]int
}

type ShowdownResponse struct {
	Summary *ShowdownSummary
}

type EndSessionRequest struct {
	Meta    RequestMeta
	BuyIn   *int64
	CashOut *int64
}

type EndSessionResponse struct {
	Result *SessionResult
}

type HistoryRequest struct {
	Meta  RequestMeta
	Limit int
}

type HistoryResponse struct {
	Sessions []*Session
}

type HandsRequest struct {
	Meta        RequestMeta
	SessionUUID string
	Limit       int
}

type HandsResponse struct {
	Hands []*HandRecord
}

type HandRequest struct {
	Meta   RequestMeta
	HandID int64
}

type HandResponse struct {
	Hand *HandRecord
}

type ProfileRequest struct {
	Meta RequestMeta
}

type ProfileResponse struct {
	Profile *PlayerProfile
}

type BankrollRequest struct {
	Meta RequestMeta
}

type BankrollResponse struct {
	Sessions int
	Net      int64
}
