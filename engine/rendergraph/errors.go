package rendergraph

import "errors"

var (
	ErrNilNode               = errors.New("node is nil")
	ErrNodeAlreadyRegistered = errors.New("node is already registered")
	ErrNodeNotRegistered     = errors.New("node is not registered")
	ErrCycleDetected         = errors.New("cycle detected")
	ErrPinNotFound           = errors.New("pin not found")
	ErrDuplicatePin          = errors.New("pin key already registered")
	ErrOutputsNotAllowed     = errors.New("node does not allow outputs")
	ErrInputsNotAllowed      = errors.New("node does not allow inputs")
	ErrEdgeExists            = errors.New("edge already exists")
	ErrEdgeNotFound          = errors.New("edge not found")
	ErrRoutingMismatch       = errors.New("resource routing mismatch")
	ErrNotConnected          = errors.New("pin is not connected")
	ErrMaxDepthExceeded      = errors.New("maximum resource query depth exceeded")
	ErrResourceType          = errors.New("unexpected resource type")
)
