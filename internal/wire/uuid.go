// Package wire implements the type codec: conversions between the
// canonical wire/storage forms and the in-process representations of
// object identifiers, timestamps, and primitive attribute values.
package wire

import (
	"github.com/google/uuid"

	"github.com/tracmeta/metacore/internal/svcerr"
)

// UUID is the 128-bit external identifier of an Object (spec.md §3). It is
// stored as two 64-bit columns (object_id_hi, object_id_lo) and exchanged on
// the wire as a canonical hyphenated string.
type UUID = uuid.UUID

// NewUUID generates a fresh, randomly-assigned identifier for preallocation
// or direct creation.
func NewUUID() UUID { return uuid.New() }

// ParseUUID decodes the canonical string form used on the wire.
func ParseUUID(s string) (UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, svcerr.Wrap(svcerr.KindInputValidation, "wire.ParseUUID", "malformed object id", err)
	}
	return id, nil
}

// SplitUUIDColumns returns the two 64-bit halves used by the storage schema
// (object_id_hi, object_id_lo in spec.md §6's persisted schema).
func SplitUUIDColumns(id UUID) (hi, lo int64) {
	b := id[:]
	hi = int64(beUint64(b[0:8]))
	lo = int64(beUint64(b[8:16]))
	return hi, lo
}

// JoinUUIDColumns reassembles a UUID from its two stored 64-bit halves.
func JoinUUIDColumns(hi, lo int64) UUID {
	var b [16]byte
	putBeUint64(b[0:8], uint64(hi))
	putBeUint64(b[8:16], uint64(lo))
	var id UUID
	copy(id[:], b[:])
	return id
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func putBeUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
