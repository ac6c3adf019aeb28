package spatial

import "errors"

// Errors reported by partitions, groups and draw batches.
//
// None of these reach the caller as a failed frame. Insertion errors make
// the drawable invisible, invariant errors skip the offending batch, and
// both are logged. Builds with the spatialdebug tag panic on invariant
// errors instead.
var (
	// ErrDegenerateExtents is reported when a drawable has non-finite,
	// inverted or zero-size extents.
	ErrDegenerateExtents = errors.New("spatial: degenerate extents")

	// ErrOutOfRange is reported when a drawable is too large or too far from
	// the partition root to be indexed.
	ErrOutOfRange = errors.New("spatial: element exceeds partition range")

	// ErrAlreadyPartitioned is reported by Put when the drawable belongs to
	// another partition.
	ErrAlreadyPartitioned = errors.New("spatial: drawable belongs to another partition")

	// ErrNotMember is reported when removing a drawable from a group that
	// does not hold it.
	ErrNotMember = errors.New("spatial: drawable not in group")

	// ErrStaleHandle is reported when a GroupHandle no longer refers to a
	// live group.
	ErrStaleHandle = errors.New("spatial: stale group handle")

	// ErrDrawRangeOutOfBuffer is reported when a DrawInfo range does not fit
	// its vertex buffer.
	ErrDrawRangeOutOfBuffer = errors.New("spatial: draw range outside vertex buffer")

	// ErrMissingAttributes is reported when a vertex buffer lacks attributes
	// required by the pass drawing it.
	ErrMissingAttributes = errors.New("spatial: vertex buffer missing attributes")

	// ErrRenderMapNotEmpty is reported when a frame starts while render-map
	// entries of the previous frame were never consumed.
	ErrRenderMapNotEmpty = errors.New("spatial: render map not consumed")

	// ErrBridgeDetached is reported when a bridge is used after its parent
	// drawable went away.
	ErrBridgeDetached = errors.New("spatial: bridge detached from parent")
)
