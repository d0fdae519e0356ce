package models

import "time"

// MessageType is the closed set of message kinds. Codes are stable and
// shared with clients.
type MessageType int

const (
	MessageText               MessageType = 0
	MessageImage              MessageType = 1
	MessageDocument           MessageType = 2
	MessageAudio              MessageType = 3
	MessageJoinedWithInvite   MessageType = 88
	MessageVideoCall          MessageType = 90
	MessageGroupAvatarChanged MessageType = 91
	MessageThreadArchived     MessageType = 92
	MessageGroupCreated       MessageType = 93
	MessageGroupRenamed       MessageType = 94
	MessageDemotedAdmin       MessageType = 95
	MessagePromotedAdmin      MessageType = 96
	MessageParticipantLeft    MessageType = 97
	MessageParticipantRemoved MessageType = 98
	MessageParticipantsAdded  MessageType = 99
)

var messageTypeNames = map[MessageType]string{
	MessageText:               "MESSAGE",
	MessageImage:              "IMAGE_MESSAGE",
	MessageDocument:           "DOCUMENT_MESSAGE",
	MessageAudio:              "AUDIO_MESSAGE",
	MessageJoinedWithInvite:   "PARTICIPANT_JOINED_WITH_INVITE",
	MessageVideoCall:          "VIDEO_CALL",
	MessageGroupAvatarChanged: "GROUP_AVATAR_CHANGED",
	MessageThreadArchived:     "THREAD_ARCHIVED",
	MessageGroupCreated:       "GROUP_CREATED",
	MessageGroupRenamed:       "GROUP_RENAMED",
	MessageDemotedAdmin:       "DEMOTED_ADMIN",
	MessagePromotedAdmin:      "PROMOTED_ADMIN",
	MessageParticipantLeft:    "PARTICIPANT_LEFT_GROUP",
	MessageParticipantRemoved: "PARTICIPANT_REMOVED",
	MessageParticipantsAdded:  "PARTICIPANTS_ADDED",
}

// String returns the verbose name, e.g. IMAGE_MESSAGE.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether t is a member of the enum.
func (t MessageType) Valid() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// UserSendable reports whether participants may send t directly. The
// remaining types are written by the system.
func (t MessageType) UserSendable() bool {
	switch t {
	case MessageText, MessageImage, MessageDocument, MessageAudio:
		return true
	}
	return false
}

// Message belongs to one thread. ReplyToID is kept verbatim even when it
// does not resolve; ReplyTo is only populated by reads that join it.
type Message struct {
	ID          string      `db:"id" json:"id"`
	ThreadID    string      `db:"thread_id" json:"thread_id"`
	OwnerAlias  string      `db:"owner_alias" json:"owner_type"`
	OwnerID     string      `db:"owner_id" json:"owner_id"`
	Type        MessageType `db:"type" json:"type"`
	Body        string      `db:"body" json:"body"`
	ReplyToID   *string     `db:"reply_to_id" json:"reply_to_id"`
	ReplyTo     *Message    `db:"-" json:"reply_to"`
	TemporaryID string      `db:"-" json:"temporary_id,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time  `db:"deleted_at" json:"-"`
}

// Owner returns the provider that sent the message.
func (m Message) Owner() ProviderRef {
	return ProviderRef{Alias: m.OwnerAlias, ID: m.OwnerID}
}

// TypeVerbose is exposed next to the numeric type in API payloads.
func (m Message) TypeVerbose() string {
	return m.Type.String()
}
