package league

import "errors"

// Domain-rule violations. They are wrapped with context and always reach
// the caller.
var (
	ErrNotFound           = errors.New("not found")
	ErrTournamentFull     = errors.New("tournament is full")
	ErrTournamentClosed   = errors.New("tournament is closed")
	ErrNotOwner           = errors.New("only the tournament owner can do this")
	ErrOwnerCannotLeave   = errors.New("the owner cannot leave, cancel the tournament instead")
	ErrEarlyFinish        = errors.New("tournament cannot be finished this early")
	ErrRequiresConnection = errors.New("this action requires a connection")
	ErrNotParticipant     = errors.New("only participants can invite")
	ErrAlreadyJoined      = errors.New("user already participates")
	ErrAlreadyInvited     = errors.New("user already has a pending invite")
	ErrNotInvitee         = errors.New("only the invited user can answer")
)
