// Package schema implements the append-only schema trees described in §3/§4.A:
// a trie keyed by (parent_id, name, node_type) that assigns each distinct
// locator a stable, monotonically increasing NodeID. Two independent trees
// coexist at runtime (auto-generated and user-generated); this package models
// a single tree, and the deserializer owns one instance per namespace.
package schema

import "errors"

// ErrDuplicateLocator is returned by Insert when the locator already exists
// in the tree. The caller (the stream deserializer) is responsible for
// translating this into a protocol error — the tree itself has no notion of
// "this is a stream violation", only "this locator already has an id".
var ErrDuplicateLocator = errors.New("schema: duplicate node locator")

// ErrNotFound is returned by Get when no node has the given id.
var ErrNotFound = errors.New("schema: node not found")

// NodeID is a stable, monotonically increasing identifier assigned in
// insertion order, starting at 0 for the root.
type NodeID uint32

// NodeType is the type tag carried by a schema-tree node.
type NodeType byte

const (
	Int NodeType = iota
	Float
	Bool
	Str
	Obj
	UnstructuredArray
)

func (t NodeType) String() string {
	switch t {
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Bool:
		return "Bool"
	case Str:
		return "Str"
	case Obj:
		return "Obj"
	case UnstructuredArray:
		return "UnstructuredArray"
	default:
		return "Unknown"
	}
}

// IsContainer reports whether nodes of this type may have children.
func (t NodeType) IsContainer() bool {
	return t == Obj
}

// Locator identifies a node prior to assignment of an id: the parent it
// hangs off of, its key name, and its type. Re-inserting an existing locator
// is a protocol error (ErrDuplicateLocator).
type Locator struct {
	ParentID NodeID
	Name     string
	Type     NodeType
}

// Node is an immutable schema-tree entry.
type Node struct {
	ID       NodeID
	ParentID NodeID
	Name     string
	Type     NodeType
}

// RootID is the id of every tree's root node. The root is its own parent
// (the sentinel described in §3) and carries an empty name.
const RootID NodeID = 0

// Tree is a single append-only trie of typed nodes. The zero value is not
// usable; construct with New.
type Tree struct {
	nodes    []Node
	children map[NodeID]map[childKey]NodeID
}

type childKey struct {
	name string
	typ  NodeType
}

// New returns a Tree containing only the root node.
func New() *Tree {
	t := &Tree{
		nodes:    make([]Node, 0, 64),
		children: make(map[NodeID]map[childKey]NodeID),
	}
	t.nodes = append(t.nodes, Node{ID: RootID, ParentID: RootID, Name: "", Type: Obj})
	return t
}

// RootNodeID returns the id of the root node.
func (t *Tree) RootNodeID() NodeID {
	return RootID
}

// Has reports whether locator already has an assigned id.
func (t *Tree) Has(locator Locator) bool {
	_, ok := t.lookup(locator)
	return ok
}

func (t *Tree) lookup(locator Locator) (NodeID, bool) {
	byName, ok := t.children[locator.ParentID]
	if !ok {
		return 0, false
	}
	id, ok := byName[childKey{name: locator.Name, typ: locator.Type}]
	return id, ok
}

// Insert assigns a new NodeID to locator and records it as a child of
// locator.ParentID. Returns ErrDuplicateLocator if the locator already
// exists. IDs are assigned in insertion order, starting at RootID+1.
func (t *Tree) Insert(locator Locator) (NodeID, error) {
	if t.Has(locator) {
		return 0, ErrDuplicateLocator
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		ID:       id,
		ParentID: locator.ParentID,
		Name:     locator.Name,
		Type:     locator.Type,
	})
	byName, ok := t.children[locator.ParentID]
	if !ok {
		byName = make(map[childKey]NodeID)
		t.children[locator.ParentID] = byName
	}
	byName[childKey{name: locator.Name, typ: locator.Type}] = id
	return id, nil
}

// Get returns the node with the given id.
func (t *Tree) Get(id NodeID) (Node, error) {
	if int(id) >= len(t.nodes) {
		return Node{}, ErrNotFound
	}
	return t.nodes[id], nil
}

// Len returns the number of nodes in the tree, including the root.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Children returns the direct children of parent, in insertion order.
// Used only by handler snapshots/introspection, never on the per-unit hot
// path.
func (t *Tree) Children(parent NodeID) []Node {
	var out []Node
	for _, n := range t.nodes {
		if n.ID != RootID && n.ParentID == parent {
			out = append(out, n)
		}
	}
	return out
}
