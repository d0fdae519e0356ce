package models

import "time"

// Invite lets a provider join a group thread through a shareable code.
// MaxUse 0 means unlimited uses.
type Invite struct {
	ID         string     `db:"id" json:"id"`
	ThreadID   string     `db:"thread_id" json:"thread_id"`
	OwnerAlias string     `db:"owner_alias" json:"owner_type"`
	OwnerID    string     `db:"owner_id" json:"owner_id"`
	Code       string     `db:"code" json:"code"`
	MaxUse     int        `db:"max_use" json:"max_use"`
	Uses       int        `db:"uses" json:"uses"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"-"`
}

// Active reports whether the invite can still be redeemed at now.
func (i Invite) Active(now time.Time) bool {
	if i.DeletedAt != nil {
		return false
	}
	if i.ExpiresAt != nil && !now.Before(*i.ExpiresAt) {
		return false
	}
	return i.MaxUse == 0 || i.Uses < i.MaxUse
}
