package models

import (
	"fmt"
	"time"
)

// ProviderRef identifies a provider by its registered alias and key.
type ProviderRef struct {
	Alias string `db:"alias" json:"alias" validate:"required"`
	ID    string `db:"id" json:"id" validate:"required"`
}

// String renders the ref as alias:id.
func (p ProviderRef) String() string {
	return fmt.Sprintf("%s:%s", p.Alias, p.ID)
}

// Channel is the private broadcast channel of the provider.
func (p ProviderRef) Channel() string {
	return fmt.Sprintf("private-messenger.%s.%s", p.Alias, p.ID)
}

// IsZero reports whether the ref is empty.
func (p ProviderRef) IsZero() bool {
	return p.Alias == "" && p.ID == ""
}

// ProviderRecord is a row of the host application's provider table.
type ProviderRecord struct {
	Alias     string    `db:"alias" json:"provider_alias"`
	ID        string    `db:"id" json:"provider_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"-"`
	Avatar    string    `db:"avatar" json:"avatar,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Ref returns the identity of the record.
func (p ProviderRecord) Ref() ProviderRef {
	return ProviderRef{Alias: p.Alias, ID: p.ID}
}

// OnlineStatus mirrors the status codes clients already understand.
type OnlineStatus int

const (
	StatusOffline OnlineStatus = 0
	StatusOnline  OnlineStatus = 1
	StatusAway    OnlineStatus = 2
)

func (s OnlineStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusAway:
		return "away"
	default:
		return "offline"
	}
}
