package models

import "time"

// Participant is a provider's membership in one thread.
type Participant struct {
	ID              string     `db:"id" json:"id"`
	ThreadID        string     `db:"thread_id" json:"thread_id"`
	OwnerAlias      string     `db:"owner_alias" json:"owner_type"`
	OwnerID         string     `db:"owner_id" json:"owner_id"`
	Admin           bool       `db:"admin" json:"admin"`
	AddParticipants bool       `db:"add_participants" json:"add_participants"`
	ManageInvites   bool       `db:"manage_invites" json:"manage_invites"`
	StartCalls      bool       `db:"start_calls" json:"start_calls"`
	SendKnocks      bool       `db:"send_knocks" json:"send_knocks"`
	SendMessages    bool       `db:"send_messages" json:"send_messages"`
	LastRead        *time.Time `db:"last_read" json:"last_read"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"-"`
}

// Owner returns the provider the participant belongs to.
func (p Participant) Owner() ProviderRef {
	return ProviderRef{Alias: p.OwnerAlias, ID: p.OwnerID}
}

// NewParticipant returns a member record with the default permissions a
// non-admin receives on join.
func NewParticipant(threadID string, owner ProviderRef) Participant {
	return Participant{
		ThreadID:     threadID,
		OwnerAlias:   owner.Alias,
		OwnerID:      owner.ID,
		SendKnocks:   true,
		SendMessages: true,
	}
}

// NewAdmin returns a member record with every permission granted.
func NewAdmin(threadID string, owner ProviderRef) Participant {
	p := NewParticipant(threadID, owner)
	p.Admin = true
	p.AddParticipants = true
	p.ManageInvites = true
	p.StartCalls = true
	return p
}

// ParticipantPermissions is a partial update of per-participant
// overrides.
type ParticipantPermissions struct {
	AddParticipants *bool `json:"add_participants"`
	ManageInvites   *bool `json:"manage_invites"`
	StartCalls      *bool `json:"start_calls"`
	SendKnocks      *bool `json:"send_knocks"`
	SendMessages    *bool `json:"send_messages"`
}

func (pp ParticipantPermissions) Apply(p *Participant) {
	if pp.AddParticipants != nil {
		p.AddParticipants = *pp.AddParticipants
	}
	if pp.ManageInvites != nil {
		p.ManageInvites = *pp.ManageInvites
	}
	if pp.StartCalls != nil {
		p.StartCalls = *pp.StartCalls
	}
	if pp.SendKnocks != nil {
		p.SendKnocks = *pp.SendKnocks
	}
	if pp.SendMessages != nil {
		p.SendMessages = *pp.SendMessages
	}
}
