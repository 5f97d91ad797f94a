package stream

import (
	"bytes"
	"errors"
	"testing"

	"logsift/internal/format"
	"logsift/internal/logevent"
	"logsift/internal/querylang"
	"logsift/internal/schema"
	"logsift/internal/value"
)

// capturingHandler records every callback invocation for assertions.
type capturingHandler struct {
	logEvents   []LogEvent
	insertions  []SchemaInsertionPayload
	utcChanges  []UTCOffsetChange
	endOfStream int
	projections []projectionResolution
}

type projectionResolution struct {
	ns   format.Namespace
	id   schema.NodeID
	path string
}

func (h *capturingHandler) HandleLogEvent(e LogEvent) error {
	h.logEvents = append(h.logEvents, e)
	return nil
}

func (h *capturingHandler) HandleSchemaTreeNodeInsertion(ns format.Namespace, payload SchemaInsertionPayload, tree TreeSnapshot) error {
	h.insertions = append(h.insertions, payload)
	return nil
}

func (h *capturingHandler) HandleUTCOffsetChange(c UTCOffsetChange) error {
	h.utcChanges = append(h.utcChanges, c)
	return nil
}

func (h *capturingHandler) HandleEndOfStream() error {
	h.endOfStream++
	return nil
}

func (h *capturingHandler) HandleProjectionResolution(ns format.Namespace, id schema.NodeID, path string) error {
	h.projections = append(h.projections, projectionResolution{ns: ns, id: id, path: path})
	return nil
}

func mustParse(t *testing.T, q string) querylang.Expr {
	t.Helper()
	expr, err := querylang.Parse(q)
	if err != nil {
		t.Fatalf("Parse(%q): %v", q, err)
	}
	return expr
}

// TestScenario1EmptyQueryMinimalStream exercises §8 scenario 1: a stream
// carrying only the preamble and EndOfStream.
func TestScenario1EmptyQueryMinimalStream(t *testing.T) {
	enc := NewEncoder()
	if err := enc.WritePreamble("v0.1", nil); err != nil {
		t.Fatalf("WritePreamble: %v", err)
	}
	enc.WriteEndOfStream()

	h := &capturingHandler{}
	r := NewByteReader(bytes.NewReader(enc.Bytes()))
	d, err := Create(r, h, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := d.DeserializeNextUnit(r)
	if err != nil {
		t.Fatalf("DeserializeNextUnit: %v", err)
	}
	if res.Type != UnitEndOfStream {
		t.Errorf("expected EndOfStream unit, got %v", res.Type)
	}
	if h.endOfStream != 1 {
		t.Errorf("expected exactly 1 handle_end_of_stream call, got %d", h.endOfStream)
	}

	if _, err := d.DeserializeNextUnit(r); !errors.Is(err, ErrOperationNotPermitted) {
		t.Errorf("expected ErrOperationNotPermitted after end of stream, got %v", err)
	}
}

// TestScenario2SingleLiteralColumn exercises §8 scenario 2.
func TestScenario2SingleLiteralColumn(t *testing.T) {
	enc := NewEncoder()
	if err := enc.WritePreamble("v0.1", nil); err != nil {
		t.Fatalf("WritePreamble: %v", err)
	}
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.RootID, Name: "a", Type: schema.Obj})
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.NodeID(1), Name: "b", Type: schema.Int})
	enc.WriteLogEvent(nil, logevent.Pairs{schema.NodeID(2): value.NewInt(42)})
	enc.WriteLogEvent(nil, logevent.Pairs{schema.NodeID(2): value.NewInt(7)})
	enc.WriteLogEvent(nil, logevent.Pairs{})
	enc.WriteEndOfStream()

	h := &capturingHandler{}
	r := NewByteReader(bytes.NewReader(enc.Bytes()))
	d, err := Create(r, h, mustParse(t, "user:a.b == 42"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var outcomes []FilterOutcome
	for i := 0; i < 6; i++ {
		res, err := d.DeserializeNextUnit(r)
		if err != nil {
			t.Fatalf("unit %d: %v", i, err)
		}
		if res.Type == UnitLogEvent {
			outcomes = append(outcomes, res.Outcome)
		}
	}

	want := []FilterOutcome{Accepted, Filtered, Filtered}
	if len(outcomes) != len(want) {
		t.Fatalf("got %d log-event outcomes, want %d: %v", len(outcomes), len(want), outcomes)
	}
	for i, o := range outcomes {
		if o != want[i] {
			t.Errorf("outcome[%d] = %v, want %v", i, o, want[i])
		}
	}
	if len(h.logEvents) != 1 {
		t.Errorf("expected exactly 1 accepted log event, got %d", len(h.logEvents))
	}
}

// TestScenario3WildcardDescent exercises §8 scenario 3.
func TestScenario3WildcardDescent(t *testing.T) {
	enc := NewEncoder()
	if err := enc.WritePreamble("v0.1", nil); err != nil {
		t.Fatalf("WritePreamble: %v", err)
	}
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.RootID, Name: "x", Type: schema.Obj})
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.NodeID(1), Name: "y", Type: schema.Obj})
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.NodeID(2), Name: "z", Type: schema.Int})
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.NodeID(1), Name: "z", Type: schema.Int})
	enc.WriteLogEvent(nil, logevent.Pairs{schema.NodeID(3): value.NewInt(5)})
	enc.WriteLogEvent(nil, logevent.Pairs{schema.NodeID(4): value.NewInt(5)})
	enc.WriteLogEvent(nil, logevent.Pairs{schema.NodeID(3): value.NewInt(-1)})
	enc.WriteEndOfStream()

	h := &capturingHandler{}
	r := NewByteReader(bytes.NewReader(enc.Bytes()))
	d, err := Create(r, h, mustParse(t, "user:x.*.z > 0"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var outcomes []FilterOutcome
	for i := 0; i < 8; i++ {
		res, err := d.DeserializeNextUnit(r)
		if err != nil {
			t.Fatalf("unit %d: %v", i, err)
		}
		if res.Type == UnitLogEvent {
			outcomes = append(outcomes, res.Outcome)
		}
	}
	want := []FilterOutcome{Accepted, Accepted, Filtered}
	if len(outcomes) != len(want) {
		t.Fatalf("got %d log-event outcomes, want %d: %v", len(outcomes), len(want), outcomes)
	}
	for i, o := range outcomes {
		if o != want[i] {
			t.Errorf("outcome[%d] = %v, want %v", i, o, want[i])
		}
	}
}

// TestScenario4Projection exercises §8 scenario 4.
func TestScenario4Projection(t *testing.T) {
	enc := NewEncoder()
	if err := enc.WritePreamble("v0.1", nil); err != nil {
		t.Fatalf("WritePreamble: %v", err)
	}
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.RootID, Name: "a", Type: schema.Obj})
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.NodeID(1), Name: "b", Type: schema.Str})
	enc.WriteEndOfStream()

	h := &capturingHandler{}
	r := NewByteReader(bytes.NewReader(enc.Bytes()))
	d, err := Create(r, h, nil, []string{"user:a.b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := d.DeserializeNextUnit(r); err != nil {
			t.Fatalf("unit %d: %v", i, err)
		}
	}

	if len(h.projections) != 1 {
		t.Fatalf("expected exactly 1 projection resolution, got %d: %v", len(h.projections), h.projections)
	}
	got := h.projections[0]
	if got.ns != format.NamespaceUser || got.id != schema.NodeID(2) || got.path != "user:a.b" {
		t.Errorf("unexpected projection resolution: %+v", got)
	}
}

// TestScenario5PureWildcardFilter exercises §8 scenario 5.
func TestScenario5PureWildcardFilter(t *testing.T) {
	enc := NewEncoder()
	if err := enc.WritePreamble("v0.1", nil); err != nil {
		t.Fatalf("WritePreamble: %v", err)
	}
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.RootID, Name: "msg", Type: schema.Str})
	enc.WriteLogEvent(nil, logevent.Pairs{schema.NodeID(1): value.NewPlainString("hello")})
	enc.WriteEndOfStream()

	h := &capturingHandler{}
	r := NewByteReader(bytes.NewReader(enc.Bytes()))
	d, err := Create(r, h, mustParse(t, `*:* == "hello"`), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var res Result
	for i := 0; i < 3; i++ {
		res, err = d.DeserializeNextUnit(r)
		if err != nil {
			t.Fatalf("unit %d: %v", i, err)
		}
		if res.Type == UnitLogEvent {
			break
		}
	}
	if res.Type != UnitLogEvent || res.Outcome != Accepted {
		t.Errorf("expected accepted log event, got %+v", res)
	}
}

// TestSchemaInsertionRejectsInvalidUTF8Name exercises §3's "PlainString(bytes)
// — must be valid UTF-8" invariant as it applies to schema-tree node names
// (§6: "name: length-prefixed utf8"): a locator name carrying an invalid
// byte sequence is a protocol violation, not a value the deserializer
// silently accepts.
func TestSchemaInsertionRejectsInvalidUTF8Name(t *testing.T) {
	enc := NewEncoder()
	if err := enc.WritePreamble("v0.1", nil); err != nil {
		t.Fatalf("WritePreamble: %v", err)
	}
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.RootID, Name: "\xc3\x28", Type: schema.Str})
	enc.WriteEndOfStream()

	h := &capturingHandler{}
	r := NewByteReader(bytes.NewReader(enc.Bytes()))
	d, err := Create(r, h, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := d.DeserializeNextUnit(r); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol for invalid UTF-8 node name, got %v", err)
	}
}

// TestLogEventRejectsInvalidUTF8PlainString exercises the same invariant for
// a PlainString value payload.
func TestLogEventRejectsInvalidUTF8PlainString(t *testing.T) {
	enc := NewEncoder()
	if err := enc.WritePreamble("v0.1", nil); err != nil {
		t.Fatalf("WritePreamble: %v", err)
	}
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.RootID, Name: "msg", Type: schema.Str})
	enc.WriteLogEvent(nil, logevent.Pairs{schema.NodeID(1): value.NewPlainString("\xc3\x28")})
	enc.WriteEndOfStream()

	h := &capturingHandler{}
	r := NewByteReader(bytes.NewReader(enc.Bytes()))
	d, err := Create(r, h, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := d.DeserializeNextUnit(r); err != nil {
		t.Fatalf("schema insertion: %v", err)
	}

	if _, err := d.DeserializeNextUnit(r); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol for invalid UTF-8 plain string, got %v", err)
	}
}

// TestScenario6TriValueComposition exercises §8 scenario 6: an AND whose
// second conjunct's column never resolves prunes the whole record.
func TestScenario6TriValueComposition(t *testing.T) {
	enc := NewEncoder()
	if err := enc.WritePreamble("v0.1", nil); err != nil {
		t.Fatalf("WritePreamble: %v", err)
	}
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.RootID, Name: "a", Type: schema.Obj})
	enc.WriteSchemaInsertion(format.NamespaceUser, schema.Locator{ParentID: schema.NodeID(1), Name: "b", Type: schema.Int})
	// "c.d" is deliberately never inserted, so it never gains a resolution.
	enc.WriteLogEvent(nil, logevent.Pairs{schema.NodeID(2): value.NewInt(1)})
	enc.WriteEndOfStream()

	h := &capturingHandler{}
	r := NewByteReader(bytes.NewReader(enc.Bytes()))
	d, err := Create(r, h, mustParse(t, "user:a.b == 1 AND user:c.d == 2"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var res Result
	for i := 0; i < 4; i++ {
		res, err = d.DeserializeNextUnit(r)
		if err != nil {
			t.Fatalf("unit %d: %v", i, err)
		}
		if res.Type == UnitLogEvent {
			break
		}
	}
	if res.Type != UnitLogEvent || res.Outcome != Filtered {
		t.Errorf("expected filtered (pruned) log event, got %+v", res)
	}
	if len(h.logEvents) != 0 {
		t.Errorf("expected no accepted log events, got %d", len(h.logEvents))
	}
}
