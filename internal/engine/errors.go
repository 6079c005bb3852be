package engine

import "errors"

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Error is a recoverable room error with a stable wire code.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

var (
	ErrRoomNotFound   = newError(KindNotFound, "ROOM_NOT_FOUND", "room not found")
	ErrGameNotFound   = newError(KindNotFound, "GAME_NOT_FOUND", "game not found")
	ErrPlayerNotFound = newError(KindNotFound, "PLAYER_NOT_FOUND", "player not found in room")

	ErrNotHost       = newError(KindForbidden, "NOT_HOST", "only the host can do that")
	ErrWrongPassword = newError(KindForbidden, "WRONG_PASSWORD", "wrong room password")

	ErrGameInProgress = newError(KindConflict, "GAME_IN_PROGRESS", "game already started")
	ErrRoomFull       = newError(KindConflict, "ROOM_FULL", "room is full")
	ErrNameTaken      = newError(KindConflict, "NAME_TAKEN", "player name already taken")
	ErrAlreadyJoined  = newError(KindConflict, "ALREADY_JOINED", "connection already in room")

	ErrGameNotActive     = newError(KindInvalidState, "GAME_NOT_ACTIVE", "no round in progress")
	ErrInvalidTransition = newError(KindInvalidState, "INVALID_TRANSITION", "action not allowed in current state")

	ErrNotEnoughPlayers = newError(KindValidation, "NOT_ENOUGH_PLAYERS", "at least two players are needed")
	ErrInvalidSettings  = newError(KindValidation, "INVALID_SETTINGS", "invalid game settings")
	ErrInvalidName      = newError(KindValidation, "INVALID_NAME", "player name is required")

	ErrUnsupportedCommand = newError(KindInternal, "UNSUPPORTED_COMMAND", "unsupported command")
)

// KindOf classifies err; anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the wire code for err, or "INTERNAL".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}
