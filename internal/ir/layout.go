package ir

import (
	"encoding/binary"
	"fmt"
)

// Record layout (little-endian, Borsh-compatible):
//
//	[tag:8][proof_len:u32][proof:proof_len][event_type:u8][timestamp:i64][zero fill]
//
// The account is always Capacity bytes. Bytes after the timestamp are zero
// and carry no meaning.
const (
	TagSize        = 8
	LengthSize     = 4
	MaxProofSize   = 512
	EventTypeSize  = 1
	TimestampSize  = 8
	Capacity       = TagSize + LengthSize + MaxProofSize + EventTypeSize + TimestampSize
	minEncodedSize = TagSize + LengthSize + EventTypeSize + TimestampSize
)

// EncodedSize returns the number of meaningful bytes a record with a proof
// of proofLen bytes occupies.
func EncodedSize(proofLen int) int {
	return minEncodedSize + proofLen
}

// CheckPayload returns a PAYLOAD_TOO_LARGE error if a proof of proofLen bytes
// does not fit in a slot.
func CheckPayload(proofLen int) error {
	if proofLen > MaxProofSize {
		return &RecordError{
			Code:    ErrCodePayloadTooLarge,
			Message: fmt.Sprintf("proof is %d bytes, slot payload budget is %d", proofLen, MaxProofSize),
		}
	}
	return nil
}

// EncodeRecord writes r into dst, which must be exactly Capacity bytes.
// dst is fully overwritten: stale bytes from a longer previous proof are
// zeroed. The size check happens before dst is touched.
func EncodeRecord(dst []byte, r Record) error {
	if len(dst) != Capacity {
		return fmt.Errorf("encode record: buffer is %d bytes, want %d", len(dst), Capacity)
	}
	if err := CheckPayload(len(r.Proof)); err != nil {
		return err
	}

	clear(dst)
	off := copy(dst, schemaTag[:])
	binary.LittleEndian.PutUint32(dst[off:], uint32(len(r.Proof)))
	off += LengthSize
	off += copy(dst[off:], r.Proof)
	dst[off] = byte(r.EventType)
	off += EventTypeSize
	binary.LittleEndian.PutUint64(dst[off:], uint64(r.Timestamp))
	return nil
}

// MarshalRecord returns a new Capacity-sized buffer holding r.
func MarshalRecord(r Record) ([]byte, error) {
	buf := make([]byte, Capacity)
	if err := EncodeRecord(buf, r); err != nil {
		return nil, err
	}
	return buf, nil
}

// EmptyRecord returns the initialized content of a freshly allocated slot.
func EmptyRecord() []byte {
	buf, _ := MarshalRecord(Record{})
	return buf
}

// HasSchemaTag reports whether data starts with the proof record tag.
func HasSchemaTag(data []byte) bool {
	if len(data) < TagSize {
		return false
	}
	return [TagSize]byte(data[:TagSize]) == schemaTag
}

// DecodeRecord parses data written by EncodeRecord.
// Returns a CORRUPT_RECORD error when the tag, the length prefix, or the
// total size does not match the layout.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) < minEncodedSize {
		return Record{}, corrupt("record is %d bytes, shorter than the %d byte minimum", len(data), minEncodedSize)
	}
	if !HasSchemaTag(data) {
		return Record{}, corrupt("schema tag %x does not match %x", data[:TagSize], schemaTag[:])
	}

	off := TagSize
	proofLen := int(binary.LittleEndian.Uint32(data[off:]))
	off += LengthSize
	if proofLen > MaxProofSize {
		return Record{}, corrupt("proof length %d exceeds %d", proofLen, MaxProofSize)
	}
	if len(data) < EncodedSize(proofLen) {
		return Record{}, corrupt("proof length %d overruns %d byte record", proofLen, len(data))
	}

	r := Record{Proof: make([]byte, proofLen)}
	off += copy(r.Proof, data[off:off+proofLen])
	r.EventType = EventType(data[off])
	off += EventTypeSize
	r.Timestamp = int64(binary.LittleEndian.Uint64(data[off:]))
	return r, nil
}

func corrupt(format string, args ...any) error {
	return &RecordError{
		Code:    ErrCodeCorruptRecord,
		Message: fmt.Sprintf(format, args...),
	}
}
