package models

import "time"

// ThreadKind distinguishes two-party threads from groups.
type ThreadKind int

const (
	ThreadPrivate ThreadKind = 1
	ThreadGroup   ThreadKind = 2
)

func (k ThreadKind) String() string {
	if k == ThreadGroup {
		return "GROUP"
	}
	return "PRIVATE"
}

// Thread is a conversation container. UpdatedAt doubles as the last
// activity marker.
type Thread struct {
	ID              string     `db:"id" json:"id"`
	Kind            ThreadKind `db:"kind" json:"type"`
	Subject         string     `db:"subject" json:"subject,omitempty"`
	Locked          bool       `db:"locked" json:"locked"`
	AddParticipants bool       `db:"add_participants" json:"add_participants"`
	Invitations     bool       `db:"invitations" json:"invitations"`
	Calling         bool       `db:"calling" json:"calling"`
	Messaging       bool       `db:"messaging" json:"messaging"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"-"`
}

func (t Thread) IsGroup() bool {
	return t.Kind == ThreadGroup
}

func (t Thread) IsPrivate() bool {
	return t.Kind == ThreadPrivate
}

func (t Thread) IsArchived() bool {
	return t.DeletedAt != nil
}

// Channel is the presence channel clients join while viewing the thread.
func (t Thread) Channel() string {
	return "presence-messenger.thread." + t.ID
}

// ThreadSettings is a partial update of group settings. Nil fields are
// left untouched.
type ThreadSettings struct {
	Subject         *string `json:"subject"`
	AddParticipants *bool   `json:"add_participants"`
	Invitations     *bool   `json:"invitations"`
	Calling         *bool   `json:"calling"`
	Messaging       *bool   `json:"messaging"`
}

// Apply copies the set fields onto t.
func (s ThreadSettings) Apply(t *Thread) {
	if s.Subject != nil {
		t.Subject = *s.Subject
	}
	if s.AddParticipants != nil {
		t.AddParticipants = *s.AddParticipants
	}
	if s.Invitations != nil {
		t.Invitations = *s.Invitations
	}
	if s.Calling != nil {
		t.Calling = *s.Calling
	}
	if s.Messaging != nil {
		t.Messaging = *s.Messaging
	}
}
