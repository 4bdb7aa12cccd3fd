package pgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariant marks a structural inconsistency in the graph. It always
	// indicates a bookkeeping bug and is fatal for the run.
	ErrInvariant = errors.New("graph invariant violated")
	// ErrStaleHandle is returned when a vertex or edge handle no longer
	// resolves to a live element.
	ErrStaleHandle = errors.New("stale handle")
	// ErrNotNeighbor is returned when an incidence cannot be matched on the
	// vertex at its other end.
	ErrNotNeighbor = errors.New("not neighbor")
	// ErrUnknownJoin is returned when two coinciding curve vertices have no
	// defined join rule.
	ErrUnknownJoin = errors.New("unknown initial join type")
	// ErrGraphDestroyed is returned when deletions leave no vertices.
	ErrGraphDestroyed = errors.New("graph destroyed")
	// ErrNoSamples is returned when a graph is built from an empty point set.
	ErrNoSamples = errors.New("no sample points")
	// ErrInvalidSample is returned for non-finite coordinates or negative weights.
	ErrInvalidSample = errors.New("invalid sample point")
	// ErrZeroWeight is returned when every sample has weight zero.
	ErrZeroWeight = errors.New("total sample weight is zero")
	// ErrShortCurve is returned when a seed curve has fewer than two points.
	ErrShortCurve = errors.New("curve needs at least two points")
	// ErrAlreadyInitialized is returned when a graph is seeded twice.
	ErrAlreadyInitialized = errors.New("graph already initialized")

	// errCannotDegrade signals that an End vertex lost its only edge.
	errCannotDegrade = errors.New("cannot degrade below degree one")
)

// InvariantError carries the failing operation and a dump of the graph.
type InvariantError struct {
	Op       string
	Detail   string
	Snapshot string
	kind     error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: %v: %s", e.Op, ErrInvariant, e.kind, e.Detail)
}

// Is reports whether target is ErrInvariant or the specific sentinel.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant || target == e.kind
}

// Unwrap returns the specific sentinel.
func (e *InvariantError) Unwrap() error { return e.kind }

// invariant builds an InvariantError with the current graph dump attached.
func (g *Graph) invariant(op string, kind error, format string, args ...interface{}) error {
	err := &InvariantError{
		Op:       op,
		Detail:   fmt.Sprintf(format, args...),
		Snapshot: g.dump(),
		kind:     kind,
	}
	Opsf("%v", err)
	return err
}

// GraphDestroyedError reports how many sample points were left unassigned
// when the graph lost its last vertex. Callers may skip the input and
// carry on.
type GraphDestroyedError struct {
	Ignored int
}

func (e *GraphDestroyedError) Error() string {
	return fmt.Sprintf("%v, %d sample points ignored", ErrGraphDestroyed, e.Ignored)
}

// Is reports whether target is ErrGraphDestroyed.
func (e *GraphDestroyedError) Is(target error) bool { return target == ErrGraphDestroyed }
