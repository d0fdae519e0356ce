package permissions

import (
	"errors"

	"messenger-service/internal/models"
)

// ErrForbidden is returned when the caller lacks rights for an action on
// an existing resource.
var ErrForbidden = errors.New("forbidden")

// Action is something a participant attempts on a thread.
type Action int

const (
	Read Action = iota
	SendMessage
	AddParticipants
	ManageSettings
	ManageInvites
	ManageParticipants
	SendKnock
	StartCall
	ToggleLock
)

var actionNames = [...]string{
	Read:               "read",
	SendMessage:        "send_message",
	AddParticipants:    "add_participants",
	ManageSettings:     "manage_settings",
	ManageInvites:      "manage_invites",
	ManageParticipants: "manage_participants",
	SendKnock:          "send_knock",
	StartCall:          "start_call",
	ToggleLock:         "toggle_lock",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// Mutating reports whether the action changes thread state.
func (a Action) Mutating() bool {
	return a != Read
}

func (a Action) requiresAdmin() bool {
	switch a {
	case AddParticipants, ManageSettings, ManageInvites, ManageParticipants, StartCall, ToggleLock:
		return true
	}
	return false
}

func (a Action) groupOnly() bool {
	switch a {
	case AddParticipants, ManageSettings, ManageInvites, ManageParticipants:
		return true
	}
	return false
}

// override returns the per-participant flag that stands in for admin
// rights, if the action has one.
func (a Action) override(p *models.Participant) (bool, bool) {
	switch a {
	case AddParticipants:
		return p.AddParticipants, true
	case ManageInvites:
		return p.ManageInvites, true
	case StartCall:
		return p.StartCalls, true
	}
	return false, false
}

// Evaluator decides whether a participant may act on a thread. It holds
// no state; every call reflects only its arguments.
type Evaluator struct{}

// CanPerform applies the rules in order; the first deny wins. A nil
// participant is a non-member and is denied everything.
func (Evaluator) CanPerform(p *models.Participant, t models.Thread, a Action) bool {
	if p == nil || p.ThreadID != t.ID || p.DeletedAt != nil {
		return false
	}
	if t.Locked && a.Mutating() && a != ToggleLock {
		return false
	}
	if a.requiresAdmin() && !p.Admin {
		flag, ok := a.override(p)
		if !ok || !flag {
			return false
		}
	}
	if a == AddParticipants && !t.AddParticipants && !p.Admin {
		return false
	}
	if a.groupOnly() && !t.IsGroup() {
		return false
	}
	switch a {
	case SendMessage:
		if !p.Admin && !p.SendMessages {
			return false
		}
	case SendKnock:
		if t.IsGroup() && !p.Admin && !p.SendKnocks {
			return false
		}
	case ToggleLock:
		if !t.IsGroup() {
			return false
		}
	}
	return true
}

// Check is CanPerform returning ErrForbidden on deny.
func (e Evaluator) Check(p *models.Participant, t models.Thread, a Action) error {
	if !e.CanPerform(p, t, a) {
		return ErrForbidden
	}
	return nil
}
