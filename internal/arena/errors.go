package arena

import "fmt"

// NotFoundError reports a missing remote item or assembly BOM. Recoverable:
// the caller can fix the reference and re-invoke.
type NotFoundError struct {
	Kind string // "item" or "assembly"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("arena: %s %s not found", e.Kind, e.ID)
}

// NetworkError reports a transport failure or server-side error. The server
// message is preserved verbatim; nothing is retried automatically.
type NetworkError struct {
	Op     string // "find item", "fetch bom", "push bom"
	Status int    // HTTP status, 0 for transport errors
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("arena: %s: server returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("arena: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
