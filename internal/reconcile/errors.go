package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBusy reports a reconciliation already in flight for the same rack.
var ErrBusy = errors.New("reconcile: another operation is already running for this rack")

// ConsistencyError reports a line whose BOM quantity disagrees with the
// number of installation positions naming it, under the enforce policy.
// It blocks the push before anything is written remotely.
type ConsistencyError struct {
	RackItemNumber string
	LineItemNumber string
	BOMQuantity    int
	PositionCount  int
	Positions      []string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("reconcile: %s line %s: quantity %d disagrees with %d installation position(s): %s",
		e.RackItemNumber, e.LineItemNumber, e.BOMQuantity, e.PositionCount, strings.Join(e.Positions, ", "))
}
