package types

import (
	"encoding/json"
	"time"
)

// Client -> Server operation names.
const (
	OpJoinMatch      = "join:match"
	OpLeaveMatch     = "leave:match"
	OpAdminBroadcast = "admin:broadcast"
	OpUpdateScore    = "match:updateScore"
	OpAddWicket      = "match:addWicket"
	OpAddBoundary    = "match:addBoundary"
	OpCompleteOver   = "match:completeOver"
	OpChangeStatus   = "match:changeStatus"
	OpAddCommentary  = "commentary:add"
)

// Server -> Client event names.
const (
	EvtScoreUpdate  = "match:scoreUpdate"
	EvtWicket       = "match:wicket"
	EvtBoundary     = "match:boundary"
	EvtOver         = "match:over"
	EvtStatusChange = "match:statusChange"
	EvtCommentary   = "commentary:update"
	EvtNotification = "admin:notification"
	EvtUserOnline   = "admin:userOnline"
	EvtUserOffline  = "admin:userOffline"
	EvtError        = "error"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	MatchID string          `json:"matchId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerEvent is a single fan-out frame. Timestamp is stamped by the server
// at broadcast time, never taken from the sender.
type ServerEvent struct {
	Type      string          `json:"type"`
	MatchID   string          `json:"matchId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
	Error     string          `json:"error,omitempty"`
}

// PresencePayload is carried by admin:userOnline / admin:userOffline.
type PresencePayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
