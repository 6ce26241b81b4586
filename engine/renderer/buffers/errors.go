package buffers

import "errors"

var (
	ErrBufferOverflow    = errors.New("write exceeds buffer capacity")
	ErrNoOpenBracket     = errors.New("buffer writer has no open bracket")
	ErrBracketOpen       = errors.New("buffer writer bracket already open")
	ErrWriterOpen        = errors.New("cannot reallocate while a writer bracket is open")
	ErrNotAllocated      = errors.New("buffer has not been allocated")
	ErrInvalidSlotCount  = errors.New("invalid frame resource count")
	ErrInvalidSlot       = errors.New("frame resource slot out of range")
	ErrInvalidCapacity   = errors.New("buffer capacity must be greater than zero")
	ErrRangeClosed       = errors.New("ring buffer range already closed")
	ErrTooManySyncFrames = errors.New("too many frames waiting for ring buffer sync")
)
