package stream

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Reader is the byte-reader abstraction §1 calls out as an external
// collaborator ("a trait/interface producing bytes and primitive
// integers"). The deserializer only ever calls through this interface, so a
// caller can supply anything that can produce framed bytes — a network
// socket, an in-memory buffer, a file. NewByteReader below is the reference
// implementation this repository needs to be testable end to end; it is not
// the production wire decoder the spec places out of scope.
type Reader interface {
	// ReadByte returns the next byte, or an error if the stream is
	// exhausted or truncated mid-frame (the reference reader returns
	// ErrTruncated in both cases).
	ReadByte() (byte, error)
	// ReadFull reads exactly n bytes.
	ReadFull(n int) ([]byte, error)
	// ReadUvarint reads a LEB128-encoded unsigned integer.
	ReadUvarint() (uint64, error)
	// ReadVarint reads a LEB128 zig-zag-encoded signed integer.
	ReadVarint() (int64, error)
	// ReadFixed32 reads 4 little-endian bytes.
	ReadFixed32() (uint32, error)
	// ReadFixed64 reads 8 little-endian bytes.
	ReadFixed64() (uint64, error)
}

// byteReader adapts an io.Reader into a Reader, matching the teacher's own
// small-buffered-reader style in internal/chunk/file (record.go,
// record_reader.go) but without that package's fixed-size record framing,
// since this wire format is variable-length per unit.
type byteReader struct {
	r *bufio.Reader
}

// NewByteReader returns a Reader over r, buffering reads the same way the
// teacher buffers chunk file reads.
func NewByteReader(r io.Reader) Reader {
	return &byteReader{r: bufio.NewReader(r)}
}

func (b *byteReader) ReadByte() (byte, error) {
	c, err := b.r.ReadByte()
	if err != nil {
		return 0, wrapTruncated(err)
	}
	return c, nil
}

func (b *byteReader) ReadFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, wrapTruncated(err)
	}
	return buf, nil
}

func (b *byteReader) ReadUvarint() (uint64, error) {
	v, err := binary.ReadUvarint(b.r)
	if err != nil {
		return 0, wrapTruncated(err)
	}
	return v, nil
}

func (b *byteReader) ReadVarint() (int64, error) {
	v, err := binary.ReadVarint(b.r)
	if err != nil {
		return 0, wrapTruncated(err)
	}
	return v, nil
}

func (b *byteReader) ReadFixed32() (uint32, error) {
	buf, err := b.ReadFull(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (b *byteReader) ReadFixed64() (uint64, error) {
	buf, err := b.ReadFull(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func wrapTruncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return &TruncatedError{Err: err}
}
