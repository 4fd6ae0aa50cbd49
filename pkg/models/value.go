// Package models defines the data structures produced by the etfdj extractors.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueKind tags the variant held by a Value.
type ValueKind string

const (
	KindAbsent  ValueKind = "absent"
	KindNumber  ValueKind = "number"
	KindText    ValueKind = "text"
	KindRanking ValueKind = "ranking"
)

// Value is a single coerced table cell. Exactly one variant is populated,
// selected by Kind. The zero Value is absent.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
	Rank   int
	Total  int
}

// Absent returns the explicit "no value could be determined" marker.
func Absent() Value { return Value{Kind: KindAbsent} }

// Number wraps a parsed float.
func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// Text wraps a raw string cell.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Ranking wraps a rank/total pair such as 142/859.
func Ranking(rank, total int) Value { return Value{Kind: KindRanking, Rank: rank, Total: total} }

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool { return v.Kind == "" || v.Kind == KindAbsent }

// Float returns the numeric variant.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Number, true
}

// FloatPtr returns the numeric variant as a pointer, nil when v is not a number.
func (v Value) FloatPtr() *float64 {
	if f, ok := v.Float(); ok {
		return &f
	}
	return nil
}

// String renders v the way it appeared on the page; absent renders empty.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatFloat(v.Number)
	case KindText:
		return v.Text
	case KindRanking:
		return fmt.Sprintf("%d/%d", v.Rank, v.Total)
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings, rankings as
// {"rank","total"} objects and absent as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Number)
	case KindText:
		return json.Marshal(v.Text)
	case KindRanking:
		return json.Marshal(struct {
			Rank  int `json:"rank"`
			Total int `json:"total"`
		}{v.Rank, v.Total})
	default:
		return []byte("null"), nil
	}
}

// RowSet is an ordered sequence of records from one table. A table missing
// from the page is absent (Present=false), which is distinct from a table that
// was found but had no data rows.
type RowSet[T any] struct {
	Present bool
	Rows    []T
}

// AbsentRows returns a RowSet for a table that was not on the page.
func AbsentRows[T any]() RowSet[T] { return RowSet[T]{} }

// PresentRows returns a RowSet for a located table. A nil slice is stored as
// an empty one.
func PresentRows[T any](rows []T) RowSet[T] {
	if rows == nil {
		rows = []T{}
	}
	return RowSet[T]{Present: true, Rows: rows}
}

// Len returns the number of rows; zero when absent.
func (s RowSet[T]) Len() int { return len(s.Rows) }

// MarshalJSON encodes an absent RowSet as null and a present one as an array.
func (s RowSet[T]) MarshalJSON() ([]byte, error) {
	if !s.Present {
		return []byte("null"), nil
	}
	if s.Rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Rows)
}

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// DateLayout is the JSON encoding of a Date.
const DateLayout = "2006-01-02"

// NewDate builds a Date in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
