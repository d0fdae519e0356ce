package models

import "time"

// Friend is a directed edge owner -> party. Two providers are friends
// only when both directions exist.
type Friend struct {
	ID         string    `db:"id" json:"id"`
	OwnerAlias string    `db:"owner_alias" json:"owner_type"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	PartyAlias string    `db:"party_alias" json:"party_type"`
	PartyID    string    `db:"party_id" json:"party_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

func (f Friend) Owner() ProviderRef {
	return ProviderRef{Alias: f.OwnerAlias, ID: f.OwnerID}
}

func (f Friend) Party() ProviderRef {
	return ProviderRef{Alias: f.PartyAlias, ID: f.PartyID}
}

// PendingFriend is an unanswered friend request sender -> recipient.
type PendingFriend struct {
	ID             string    `db:"id" json:"id"`
	SenderAlias    string    `db:"sender_alias" json:"sender_type"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	RecipientAlias string    `db:"recipient_alias" json:"recipient_type"`
	RecipientID    string    `db:"recipient_id" json:"recipient_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (p PendingFriend) Sender() ProviderRef {
	return ProviderRef{Alias: p.SenderAlias, ID: p.SenderID}
}

func (p PendingFriend) Recipient() ProviderRef {
	return ProviderRef{Alias: p.RecipientAlias, ID: p.RecipientID}
}
