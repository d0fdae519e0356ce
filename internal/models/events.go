package models

// Event names emitted by the messenger core.
const (
	EventNewMessage         = "message.new"
	EventMessageArchived    = "message.archived"
	EventParticipantAdded   = "participant.added"
	EventParticipantRemoved = "participant.removed"
	EventThreadSettings     = "thread.settings"
	EventThreadArchived     = "thread.archived"
	EventKnock              = "knock.knock"
	EventCallStarted        = "call.started"
	EventFriendRequest      = "friend.request"
	EventFriendApproved     = "friend.approved"
	EventFriendRemoved      = "friend.removed"
	EventPromotedAdmin      = "participant.promoted"
	EventDemotedAdmin       = "participant.demoted"
)

// SocketEvent is the frame written to websocket clients.
type SocketEvent struct {
	Type    string         `json:"type"`
	Channel string         `json:"channel,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}
