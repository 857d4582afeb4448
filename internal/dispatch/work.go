package dispatch

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Kind identifies what a Work item asks the consumer to do.
type Kind uint32

const (
	// KindLog carries a rendered log line for the async log writer.
	KindLog Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Work is one unit handed from a producer to a consumer.
//
// Payload is copied into the ring by Dispatch, so the producer may reuse its
// buffer as soon as Dispatch returns. The Work returned by Fetch owns its
// Payload.
type Work struct {
	Kind     Kind
	Payload  []byte
	PushTime time.Time
}

// workHeaderSize is kind (uint32) followed by push time in unix nanoseconds
// (int64), both little-endian.
const workHeaderSize = 12

func (w Work) encodedLen() int {
	return workHeaderSize + len(w.Payload)
}

// appendTo appends the wire form of w to dst.
func (w Work) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(w.Kind))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(w.PushTime.UnixNano()))
	return append(dst, w.Payload...)
}

// decodeWork parses a record produced by appendTo. The returned payload
// aliases rec.
func decodeWork(rec []byte) (Work, error) {
	if len(rec) < workHeaderSize {
		return Work{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrCorruptRecord, len(rec), workHeaderSize)
	}
	return Work{
		Kind:     Kind(binary.LittleEndian.Uint32(rec[0:4])),
		PushTime: time.Unix(0, int64(binary.LittleEndian.Uint64(rec[4:12]))),
		Payload:  rec[workHeaderSize:],
	}, nil
}
