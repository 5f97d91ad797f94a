package stream

import (
	"math"

	"logsift/internal/format"
	"logsift/internal/logevent"
	"logsift/internal/schema"
	"logsift/internal/utf8util"
	"logsift/internal/value"
)

// This file is the wire decoder for individual units (§6): §1's Out of
// scope list excludes an externally owned "decode_next_unit(reader)"
// collaborator, but names no other owner for the payload bytes once a unit
// tag has been read, so the deserializer decodes payloads directly, exactly
// as SPEC_FULL.md's expanded Out of scope section records. Layouts below
// are this repository's own choice (§6: "not endianness or varint
// encoding, which must match the producer") and are recorded in
// DESIGN.md's Open Question decisions.

// readLengthPrefixedString reads a length-prefixed UTF-8 string (§6: "name:
// length-prefixed utf8"), used both for schema-tree node names and for
// PlainString value payloads (§3: "PlainString(bytes) — must be valid
// UTF-8"). Invalid UTF-8 is a framing violation, not a value the deserializer
// silently accepts.
func readLengthPrefixedString(r Reader) (string, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return "", err
	}
	buf, err := r.ReadFull(int(n))
	if err != nil {
		return "", err
	}
	if !utf8util.Valid(buf) {
		return "", newProtocolError("invalid UTF-8 in length-prefixed string")
	}
	return string(buf), nil
}

func readLocator(r Reader) (schema.Locator, error) {
	parentID, err := r.ReadUvarint()
	if err != nil {
		return schema.Locator{}, err
	}
	name, err := readLengthPrefixedString(r)
	if err != nil {
		return schema.Locator{}, err
	}
	typTag, err := r.ReadByte()
	if err != nil {
		return schema.Locator{}, err
	}
	typ, err := nodeTypeFromTag(format.NodeTypeTag(typTag))
	if err != nil {
		return schema.Locator{}, err
	}
	return schema.Locator{ParentID: schema.NodeID(parentID), Name: name, Type: typ}, nil
}

func nodeTypeFromTag(tag format.NodeTypeTag) (schema.NodeType, error) {
	switch tag {
	case format.NodeTypeInt:
		return schema.Int, nil
	case format.NodeTypeFloat:
		return schema.Float, nil
	case format.NodeTypeBool:
		return schema.Bool, nil
	case format.NodeTypeStr:
		return schema.Str, nil
	case format.NodeTypeObj:
		return schema.Obj, nil
	case format.NodeTypeUnstructuredArray:
		return schema.UnstructuredArray, nil
	default:
		return 0, newProtocolError("unknown node type tag 0x%02x", byte(tag))
	}
}

func nodeTypeToTag(t schema.NodeType) format.NodeTypeTag {
	switch t {
	case schema.Int:
		return format.NodeTypeInt
	case schema.Float:
		return format.NodeTypeFloat
	case schema.Bool:
		return format.NodeTypeBool
	case schema.Str:
		return format.NodeTypeStr
	case schema.Obj:
		return format.NodeTypeObj
	default:
		return format.NodeTypeUnstructuredArray
	}
}

// readValue decodes a single tagged value.Value payload (§3, §6
// "Log-event payload: ... value encoding per Value variant").
func readValue(r Reader) (value.Value, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return value.Value{}, err
	}
	switch format.ValueTag(tagByte) {
	case format.ValueNull:
		return value.NewNull(), nil
	case format.ValueBool:
		b, err := r.ReadByte()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(b != 0), nil
	case format.ValueInt:
		i, err := r.ReadVarint()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewInt(i), nil
	case format.ValueFloat:
		bits, err := r.ReadFixed64()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(math.Float64frombits(bits)), nil
	case format.ValuePlainString:
		s, err := readLengthPrefixedString(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewPlainString(s), nil
	case format.ValueEncodedTextAst8:
		return readEncodedTextAst8(r)
	case format.ValueEncodedTextAst4:
		return readEncodedTextAst4(r)
	default:
		return value.Value{}, newProtocolError("unknown value tag 0x%02x", tagByte)
	}
}

func readDictVars(r Reader) ([]string, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := readLengthPrefixedString(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func readEncodedTextAst8(r Reader) (value.Value, error) {
	logtype, err := readLengthPrefixedString(r)
	if err != nil {
		return value.Value{}, err
	}
	dictVars, err := readDictVars(r)
	if err != nil {
		return value.Value{}, err
	}
	n, err := r.ReadUvarint()
	if err != nil {
		return value.Value{}, err
	}
	vars := make([]int64, n)
	for i := range vars {
		bits, err := r.ReadFixed64()
		if err != nil {
			return value.Value{}, err
		}
		vars[i] = int64(bits)
	}
	return value.NewEncodedTextAst8(logtype, dictVars, vars), nil
}

func readEncodedTextAst4(r Reader) (value.Value, error) {
	logtype, err := readLengthPrefixedString(r)
	if err != nil {
		return value.Value{}, err
	}
	dictVars, err := readDictVars(r)
	if err != nil {
		return value.Value{}, err
	}
	n, err := r.ReadUvarint()
	if err != nil {
		return value.Value{}, err
	}
	vars := make([]int32, n)
	for i := range vars {
		bits, err := r.ReadFixed32()
		if err != nil {
			return value.Value{}, err
		}
		vars[i] = int32(bits)
	}
	return value.NewEncodedTextAst4(logtype, dictVars, vars), nil
}

func readPairs(r Reader) (logevent.Pairs, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	pairs := make(logevent.Pairs, n)
	for i := uint64(0); i < n; i++ {
		id, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		pairs[schema.NodeID(id)] = v
	}
	return pairs, nil
}

func readLogEvent(r Reader) (LogEvent, error) {
	autoPairs, err := readPairs(r)
	if err != nil {
		return LogEvent{}, err
	}
	userPairs, err := readPairs(r)
	if err != nil {
		return LogEvent{}, err
	}
	return LogEvent{Auto: autoPairs, User: userPairs}, nil
}
