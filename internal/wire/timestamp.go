package wire

import (
	"time"

	"github.com/tracmeta/metacore/internal/svcerr"
)

// Timestamp carries both the normalised-UTC storage value and the original
// zone offset preserved on the wire (spec.md §4.1: "Datetimes are stored
// normalised to UTC but the original offset is preserved in the wire form").
// Precision is truncated to microseconds when stored, per §4.1.
type Timestamp struct {
	// UTC is always in the UTC location, truncated to microsecond precision.
	UTC time.Time
	// OffsetSeconds is the zone offset of the original wire value, east of
	// UTC, as in time.Time.Zone().
	OffsetSeconds int
}

// Now captures a single clock reading as a Timestamp in the local offset.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime converts an in-memory time.Time to the storage/wire Timestamp
// form, truncating to microsecond precision and recording its offset.
func FromTime(t time.Time) Timestamp {
	_, offset := t.Zone()
	return Timestamp{
		UTC:           t.UTC().Truncate(time.Microsecond),
		OffsetSeconds: offset,
	}
}

// ParseTimestamp decodes an ISO-8601 string with a UTC offset, as received
// on the wire.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, svcerr.Wrap(svcerr.KindInputValidation, "wire.ParseTimestamp", "malformed timestamp", err)
	}
	return FromTime(t), nil
}

// Format renders the timestamp on the wire with its original offset,
// ISO-8601, truncated to microsecond precision.
func (t Timestamp) Format() string {
	loc := time.FixedZone("", t.OffsetSeconds)
	return t.UTC.In(loc).Format("2006-01-02T15:04:05.000000Z07:00")
}

// utcLayout is a fixed-width, zone-naive layout: lexical string comparison
// of two values in this layout agrees with chronological order, which
// Format's embedded original offset does not guarantee. It deliberately
// carries no "T"/"Z"/offset marker so the same string is also a valid
// MySQL DATETIME literal and a valid Postgres TIMESTAMP (without time
// zone) literal, interpreted the same way regardless of session zone.
const utcLayout = "2006-01-02 15:04:05.000000"

// FormatUTC renders the timestamp's normalized-UTC value alone, without the
// original wire offset (spec.md §6: storage keeps "a dialect-appropriate
// high-resolution column plus a separate zone-offset column"). Storage
// columns that are compared or ordered chronologically (object_time,
// tag_time) hold this form; OffsetSeconds is persisted alongside in its own
// column and reattached on read via ParseTimestampUTC.
func (t Timestamp) FormatUTC() string {
	return t.UTC.Format(utcLayout)
}

// ParseTimestampUTC reconstructs a Timestamp from a normalized-UTC storage
// string (as produced by FormatUTC) and the offset recorded in its
// companion column.
func ParseTimestampUTC(s string, offsetSeconds int) (Timestamp, error) {
	t, err := time.Parse(utcLayout, s)
	if err != nil {
		return Timestamp{}, svcerr.Wrap(svcerr.KindInputValidation, "wire.ParseTimestampUTC", "malformed stored timestamp", err)
	}
	return Timestamp{UTC: t.UTC(), OffsetSeconds: offsetSeconds}, nil
}

// Before reports whether t is strictly earlier than other, compared in UTC.
func (t Timestamp) Before(other Timestamp) bool {
	return t.UTC.Before(other.UTC)
}

// BeforeOrEqual reports t <= other, compared in UTC — the comparison used
// by as_of selector resolution (spec.md §4.6: "highest version/tag whose
// *_timestamp <= t").
func (t Timestamp) BeforeOrEqual(other Timestamp) bool {
	return !t.UTC.After(other.UTC)
}
