package gatefast

import "encoding/json"

// GatewayInfo is the sync gateway's /info response.
type GatewayInfo struct {
	Version      string `json:"version"`
	PollingSpeed int    `json:"polling_speed"`
	MessageRate  int    `json:"message_rate"`
	Endpoint     string `json:"endpoint"`
}

// Event is one inbound frame from the gateway's table feed. Payload carries the
// type-specific body (a showdown request, a session command) still encoded.
type Event struct {
	Type    string          `json:"type"`
	Table   string          `json:"table"`
	Sender  *string         `json:"sender,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event types the ledger daemon reacts to.
const (
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
	EventRebuy        = "rebuy"
	EventPotPreview   = "pot_preview"
	EventShowdown     = "showdown"
	EventStatus       = "status"
	EventBankroll     = "bankroll"
	EventHistory      = "history"
	EventHands        = "hands"
	EventHand         = "hand"
	EventProfile      = "profile"
	EventHelp         = "help"
)

// NotifyRequest pushes a rendered result back to the table.
type NotifyRequest struct {
	Type  string `json:"type"`
	Table string `json:"table"`
	Data  string `json:"data"`
}
