package stream

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"

	"logsift/internal/format"
	"logsift/internal/logevent"
	"logsift/internal/schema"
	"logsift/internal/value"
)

// Encoder writes the preamble and per-unit frames described in §6. It
// exists only for tests and the demo CLI (cmd/streamdump) to exercise the
// Deserializer round-trip without a production wire decoder existing
// elsewhere in this repository — mirroring the teacher's own pattern of
// colocating EncodeRecord next to DecodeRecord in chunk/file/record.go.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an Encoder with an empty buffer.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated wire bytes written so far.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

func (e *Encoder) writeByte(b byte) { e.buf.WriteByte(b) }

func (e *Encoder) writeUvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	e.buf.Write(tmp[:n])
}

func (e *Encoder) writeVarint(v int64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	e.buf.Write(tmp[:n])
}

func (e *Encoder) writeFixed32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf.Write(tmp[:])
}

func (e *Encoder) writeFixed64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf.Write(tmp[:])
}

func (e *Encoder) writeString(s string) {
	e.writeUvarint(uint64(len(s)))
	e.buf.WriteString(s)
}

// WritePreamble writes the encoding tag and the JSON metadata preamble
// described in §6. userDefined may be nil.
func (e *Encoder) WritePreamble(version string, userDefined map[string]any) error {
	e.writeByte(byte(format.EncodingV1))
	e.writeByte(byte(format.MetadataJSON))

	obj := map[string]any{"version": version}
	if userDefined != nil {
		obj["user_defined_metadata"] = userDefined
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	e.writeUvarint(uint64(len(raw)))
	e.buf.Write(raw)
	return nil
}

// WriteSchemaInsertion writes a SchemaTreeNodeInsertion unit.
func (e *Encoder) WriteSchemaInsertion(ns format.Namespace, loc schema.Locator) {
	e.writeByte(byte(format.UnitSchemaTreeNodeInsertion))
	e.writeByte(byte(ns))
	e.writeUvarint(uint64(loc.ParentID))
	e.writeString(loc.Name)
	e.writeByte(byte(nodeTypeToTag(loc.Type)))
}

// WriteLogEvent writes a LogEvent unit carrying auto and user pairs.
func (e *Encoder) WriteLogEvent(auto, user logevent.Pairs) {
	e.writeByte(byte(format.UnitLogEvent))
	e.writePairs(auto)
	e.writePairs(user)
}

func (e *Encoder) writePairs(pairs logevent.Pairs) {
	e.writeUvarint(uint64(len(pairs)))
	for id, v := range pairs {
		e.writeUvarint(uint64(id))
		e.writeValue(v)
	}
}

func (e *Encoder) writeValue(v value.Value) {
	switch v.Kind() {
	case value.KindNull:
		e.writeByte(byte(format.ValueNull))
	case value.KindBool:
		e.writeByte(byte(format.ValueBool))
		b, _ := v.AsBool()
		if b {
			e.writeByte(1)
		} else {
			e.writeByte(0)
		}
	case value.KindInt:
		e.writeByte(byte(format.ValueInt))
		i, _ := v.AsInt()
		e.writeVarint(i)
	case value.KindFloat:
		e.writeByte(byte(format.ValueFloat))
		f, _ := v.AsFloat()
		e.writeFixed64(math.Float64bits(f))
	case value.KindPlainString:
		e.writeByte(byte(format.ValuePlainString))
		s, _ := v.AsPlainString()
		e.writeString(s)
	case value.KindEncodedTextAst8:
		e.writeByte(byte(format.ValueEncodedTextAst8))
		logtype, _ := v.Logtype()
		e.writeString(logtype)
		e.writeDictVars(v.DictVars())
		vars := v.EncodedVars8()
		e.writeUvarint(uint64(len(vars)))
		for _, x := range vars {
			e.writeFixed64(uint64(x))
		}
	case value.KindEncodedTextAst4:
		e.writeByte(byte(format.ValueEncodedTextAst4))
		logtype, _ := v.Logtype()
		e.writeString(logtype)
		e.writeDictVars(v.DictVars())
		vars := v.EncodedVars4()
		e.writeUvarint(uint64(len(vars)))
		for _, x := range vars {
			e.writeFixed32(uint32(x))
		}
	}
}

func (e *Encoder) writeDictVars(vars []string) {
	e.writeUvarint(uint64(len(vars)))
	for _, s := range vars {
		e.writeString(s)
	}
}

// WriteUTCOffsetChange writes a UtcOffsetChange unit.
func (e *Encoder) WriteUTCOffsetChange(newOffsetSeconds int64) {
	e.writeByte(byte(format.UnitUTCOffsetChange))
	e.writeVarint(newOffsetSeconds)
}

// WriteEndOfStream writes the tag-only EndOfStream unit.
func (e *Encoder) WriteEndOfStream() {
	e.writeByte(byte(format.UnitEndOfStream))
}
