package avl

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt reports a broken tree: bad ordering, bad balance factors, counts
	// that do not match, or links that form a cycle or lead nowhere.
	ErrCorrupt = errors.New("index structure is corrupt")

	// ErrConcurrentModification is returned by an iterator whose store changed
	// after the iterator was created.
	ErrConcurrentModification = errors.New("index was modified during iteration")
)

func errCycle(id int32) error {
	return fmt.Errorf("%w: walk did not terminate at node %d, links form a cycle", ErrCorrupt, id)
}
