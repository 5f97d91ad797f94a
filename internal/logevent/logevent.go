// Package logevent defines the materialized record type a stream deserializer
// hands to a unit handler once a decoded log event has survived query
// evaluation (§3 "Log event", §4.G "LogEvent" unit handling).
package logevent

import (
	"logsift/internal/format"
	"logsift/internal/schema"
	"logsift/internal/value"
)

// Pairs is one namespace's bag of (node-id, value) pairs carried by a single
// log event.
type Pairs map[schema.NodeID]value.Value

// LogEvent is a single record: two disjoint bags of (NodeID, Value) pairs,
// one per namespace (§3).
type LogEvent struct {
	Auto Pairs
	User Pairs
}

// PairsFor returns the pair bag for the given namespace.
func (e LogEvent) PairsFor(ns format.Namespace) Pairs {
	if ns == format.NamespaceAuto {
		return e.Auto
	}
	return e.User
}
