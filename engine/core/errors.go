package core

import (
	"errors"
)

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrIdentifierRange = errors.New("identifier out of range")
	ErrIdentifierFree  = errors.New("identifier is not in use")
	ErrWatcherClosed   = errors.New("config watcher already closed")
)
