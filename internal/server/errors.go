package server

import "errors"

var (
	ErrEmptyMessage  = errors.New("message must have text or an attachment")
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrNotIdentified = errors.New("connection has not declared a username")
	ErrRateLimited   = errors.New("too many requests")

	ErrReservedRoom    = errors.New("rooms starting with \"dm:\" hold private messages")
	ErrNotParticipant  = errors.New("not a participant in this conversation")
	ErrAmbiguousTarget = errors.New("set either room or to, not both")
)
