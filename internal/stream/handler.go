package stream

import (
	"logsift/internal/format"
	"logsift/internal/schema"
)

// UnitHandler is the contract described in §4.H: four required callbacks
// invoked as units are accepted, plus one optional callback for projection
// resolutions. Any non-nil error returned by a callback is wrapped in
// HandlerError and propagated verbatim to the deserializer's caller (§7).
type UnitHandler interface {
	// HandleLogEvent is invoked once per LogEvent unit that survived query
	// evaluation.
	HandleLogEvent(event LogEvent) error

	// HandleSchemaTreeNodeInsertion is invoked once per accepted
	// SchemaTreeNodeInsertion unit, after the node has been inserted into
	// the relevant namespace's tree and the path matcher has run its
	// resolution step for it.
	HandleSchemaTreeNodeInsertion(ns format.Namespace, payload SchemaInsertionPayload, tree TreeSnapshot) error

	// HandleUTCOffsetChange is invoked once per UtcOffsetChange unit.
	HandleUTCOffsetChange(change UTCOffsetChange) error

	// HandleEndOfStream is invoked exactly once, when the EndOfStream unit
	// is accepted.
	HandleEndOfStream() error
}

// ProjectionHandler is implemented by a UnitHandler that also wants
// handle_projection_resolution callbacks (§4.H: "optional; default =
// success"). A UnitHandler that does not implement this interface simply
// never receives projection callbacks. Its method set matches
// pathmatch.ProjectionHandler exactly; the resolver is given a
// projectionAdapter (deserializer.go) that forwards to this method when the
// UnitHandler implements it.
type ProjectionHandler interface {
	HandleProjectionResolution(ns format.Namespace, id schema.NodeID, originalPath string) error
}

// NopHandler is a UnitHandler whose every callback succeeds without doing
// anything, useful for tests that only care about the deserializer's
// filtering/resolution behavior, not the handler's side effects — the same
// role the teacher's discardHandler plays for logging.
type NopHandler struct{}

func (NopHandler) HandleLogEvent(LogEvent) error { return nil }
func (NopHandler) HandleSchemaTreeNodeInsertion(format.Namespace, SchemaInsertionPayload, TreeSnapshot) error {
	return nil
}
func (NopHandler) HandleUTCOffsetChange(UTCOffsetChange) error { return nil }
func (NopHandler) HandleEndOfStream() error                    { return nil }
