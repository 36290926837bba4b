package cache

import (
	"errors"
	"fmt"
)

// ErrUnroutable marks an update whose owning session could not be resolved.
var ErrUnroutable = errors.New("no owning session")

// RoutingError reports a dropped update. The cache is left unchanged.
type RoutingError struct {
	Type   string
	FileID string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("route %s for file %q: %v", e.Type, e.FileID, ErrUnroutable)
}

func (e *RoutingError) Unwrap() error { return ErrUnroutable }
