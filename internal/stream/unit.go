package stream

import (
	"logsift/internal/format"
	"logsift/internal/logevent"
	"logsift/internal/schema"
)

// UnitType discriminates the four kinds of unit a stream can carry (§4.G).
type UnitType int

const (
	UnitLogEvent UnitType = iota
	UnitSchemaTreeNodeInsertion
	UnitUTCOffsetChange
	UnitEndOfStream
)

func (u UnitType) String() string {
	switch u {
	case UnitLogEvent:
		return "LogEvent"
	case UnitSchemaTreeNodeInsertion:
		return "SchemaTreeNodeInsertion"
	case UnitUTCOffsetChange:
		return "UtcOffsetChange"
	case UnitEndOfStream:
		return "EndOfStream"
	default:
		return "Unknown"
	}
}

// FilterOutcome is the deserializer's per-call result for a LogEvent unit
// that was decoded but failed query evaluation (§4.G: "return a
// distinguishable 'filtered' status"). It is returned alongside UnitLogEvent
// so a caller driving the main loop can tell "accepted and handled" apart
// from "decoded, dropped, keep looping" without inspecting handler
// side-effects.
type FilterOutcome int

const (
	// Accepted means the unit was handled (log event passed the query, or
	// the unit is not a log event at all).
	Accepted FilterOutcome = iota
	// Filtered means a decoded LogEvent did not satisfy the query and was
	// dropped without invoking handle_log_event.
	Filtered
)

// Result is what DeserializeNextUnit returns for a single accepted unit.
type Result struct {
	Type    UnitType
	Outcome FilterOutcome
}

// SchemaInsertionPayload is the decoded body of a SchemaTreeNodeInsertion
// unit, handed to handle_schema_tree_node_insertion alongside a snapshot of
// the tree it was just inserted into (§4.H).
type SchemaInsertionPayload struct {
	Namespace format.Namespace
	Locator   schema.Locator
	ID        schema.NodeID
}

// TreeSnapshot is the read-only view of a schema tree valid for the
// duration of a handler callback (§5: "handlers receive read-only
// snapshots ... valid at least for the duration of the callback").
type TreeSnapshot struct {
	tree *schema.Tree
}

func (s TreeSnapshot) Get(id schema.NodeID) (schema.Node, error) { return s.tree.Get(id) }
func (s TreeSnapshot) Len() int                                  { return s.tree.Len() }
func (s TreeSnapshot) Children(parent schema.NodeID) []schema.Node {
	return s.tree.Children(parent)
}

// UTCOffsetChange is the decoded body of a UtcOffsetChange unit.
type UTCOffsetChange struct {
	OldOffsetSeconds int64
	NewOffsetSeconds int64
}

// LogEvent is the materialized record handed to handle_log_event once it
// has survived query evaluation.
type LogEvent = logevent.LogEvent
