package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"time"

	"github.com/parkd-io/parkd/internal/domain"
)

// Codec encodes and decodes a lot State to and from a byte stream.
// Implementations own the wire format; the lot never inspects the bytes.
type Codec interface {
	// Encode serializes the state.
	Encode(s State) ([]byte, error)

	// Decode parses a previously encoded state. Returns an error for
	// unknown versions, truncated input, or checksum mismatches.
	Decode(data []byte) (State, error)
}

// Codec errors. Callers usually treat any of them as "start from defaults".
var (
	ErrBadMagic    = errors.New("snapshot: bad magic")
	ErrBadVersion  = errors.New("snapshot: unsupported version")
	ErrBadChecksum = errors.New("snapshot: checksum mismatch")
	ErrTruncated   = errors.New("snapshot: truncated data")
)

// Binary format v1. All integers are big-endian, strings are
// length-prefixed, timestamps are unix seconds (0 = unset), and the
// payload is followed by a CRC32 (IEEE) of everything before it.
//
//	magic   [4]byte "PKLT"
//	version u8
//	capacity u32
//	occupied u32
//	smallRate f64
//	largeRate f64
//	count    u32
//	count * {
//	    plateLen u16, plate
//	    classLen u8,  class
//	    entry i64, exit i64, fee f64
//	}
//	crc32 u32

var magic = [4]byte{'P', 'K', 'L', 'T'}

const formatVersion = 1

// maxPlateLen bounds a single plate field on decode so a corrupt length
// prefix cannot trigger a huge allocation.
const maxPlateLen = 256

// BinaryCodec implements Codec with the versioned v1 layout.
type BinaryCodec struct{}

// NewBinaryCodec returns a codec for the current format version.
func NewBinaryCodec() *BinaryCodec {
	return &BinaryCodec{}
}

// Encode serializes the state with a version tag and trailing checksum.
func (c *BinaryCodec) Encode(s State) ([]byte, error) {
	buf := make([]byte, 0, 64+len(s.Vehicles)*48)

	buf = append(buf, magic[:]...)
	buf = append(buf, formatVersion)
	buf = binary.BigEndian.AppendUint32(buf, uint32(s.Capacity))
	buf = binary.BigEndian.AppendUint32(buf, uint32(s.Occupied))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(s.SmallRate))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(s.LargeRate))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s.Vehicles)))

	for _, v := range s.Vehicles {
		if len(v.Plate) > maxPlateLen {
			return nil, fmt.Errorf("snapshot: plate %q exceeds %d bytes", v.Plate, maxPlateLen)
		}
		if len(v.Class) > math.MaxUint8 {
			return nil, fmt.Errorf("snapshot: class %q too long", v.Class)
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(v.Plate)))
		buf = append(buf, v.Plate...)
		buf = append(buf, byte(len(v.Class)))
		buf = append(buf, v.Class...)
		buf = binary.BigEndian.AppendUint64(buf, uint64(unixOrZero(v.EntryTime)))
		buf = binary.BigEndian.AppendUint64(buf, uint64(unixOrZero(v.ExitTime)))
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v.Fee))
	}

	buf = binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf, nil
}

// Decode parses and verifies an encoded state.
func (c *BinaryCodec) Decode(data []byte) (State, error) {
	if len(data) < len(magic)+1+4 {
		return State{}, ErrTruncated
	}
	if [4]byte(data[:4]) != magic {
		return State{}, ErrBadMagic
	}
	if data[4] != formatVersion {
		return State{}, fmt.Errorf("%w: %d", ErrBadVersion, data[4])
	}

	payload, sum := data[:len(data)-4], binary.BigEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(payload) != sum {
		return State{}, ErrBadChecksum
	}

	r := reader{buf: payload[5:]}

	var s State
	s.Capacity = int(r.uint32())
	s.Occupied = int(r.uint32())
	s.SmallRate = math.Float64frombits(r.uint64())
	s.LargeRate = math.Float64frombits(r.uint64())

	count := r.uint32()
	for i := uint32(0); i < count && r.err == nil; i++ {
		plateLen := int(r.uint16())
		if plateLen > maxPlateLen {
			return State{}, fmt.Errorf("snapshot: plate length %d out of range", plateLen)
		}
		plate := r.bytes(plateLen)
		class := r.bytes(int(r.uint8()))
		entry := int64(r.uint64())
		exit := int64(r.uint64())
		fee := math.Float64frombits(r.uint64())
		if r.err != nil {
			break
		}
		s.Vehicles = append(s.Vehicles, domain.Vehicle{
			Plate:     string(plate),
			Class:     domain.Class(class),
			EntryTime: timeOrZero(entry),
			ExitTime:  timeOrZero(exit),
			Fee:       fee,
		})
	}
	if r.err != nil {
		return State{}, r.err
	}
	return s, nil
}

// reader walks a decode buffer, remembering the first out-of-bounds read.
type reader struct {
	buf []byte
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf) < n {
		r.err = ErrTruncated
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) uint8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}
