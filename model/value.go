package model

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the canonical type of a normalized value.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindDate
	KindDateTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	default:
		return "text"
	}
}

const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
)

// Date is a calendar day without time of day, always at UTC midnight.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// VariantType is the declared kind of a boxed attribute value.
type VariantType int

const (
	VariantString VariantType = iota
	VariantInt
	VariantDouble
	VariantDate
	VariantDateTime
)

// Variant is a value whose kind is declared by the data source (an attribute
// table column type) rather than by its Go type.
type Variant struct {
	Type VariantType
	Raw  any
}

// Value is the result of Normalize: an int, a float, a date, a date-time or,
// when nothing else matched, the original text.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Time  time.Time
	Text  string
}

func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func DateValue(d Date) Value { return Value{Kind: KindDate, Time: d.Time} }
func DateTimeValue(t time.Time) Value { return Value{Kind: KindDateTime, Time: t} }
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// IsTime reports whether the value is a date or a date-time.
func (v Value) IsTime() bool {
	return v.Kind == KindDate || v.Kind == KindDateTime
}

// Num returns the numeric encoding used for plotting. Dates are encoded as
// Unix seconds. Text has no encoding.
func (v Value) Num() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	case KindDate, KindDateTime:
		return TimeToNum(v.Time), true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindDate:
		return v.Time.Format(DateLayout)
	case KindDateTime:
		return v.Time.Format(DateTimeLayout)
	default:
		return v.Text
	}
}

// TimeToNum encodes t as fractional Unix seconds.
func TimeToNum(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// NumToTime decodes fractional Unix seconds, rounded to the microsecond.
func NumToTime(v float64) time.Time {
	micros := int64(math.Round(v * 1e6))
	return time.UnixMicro(micros).UTC()
}

// Normalize converts a value of unknown origin into a Value. Native numbers
// and times pass through, variants dispatch on their declared type, anything
// else is parsed as a date-time, then as a date, and finally kept as text.
func Normalize(raw any) Value {
	switch v := raw.(type) {
	case Value:
		return v
	case int:
		return IntValue(int64(v))
	case int8:
		return IntValue(int64(v))
	case int16:
		return IntValue(int64(v))
	case int32:
		return IntValue(int64(v))
	case int64:
		return IntValue(v)
	case uint:
		return IntValue(int64(v))
	case uint8:
		return IntValue(int64(v))
	case uint16:
		return IntValue(int64(v))
	case uint32:
		return IntValue(int64(v))
	case uint64:
		return IntValue(int64(v))
	case float32:
		return FloatValue(float64(v))
	case float64:
		return FloatValue(v)
	case Date:
		return DateValue(v)
	case time.Time:
		return DateTimeValue(v)
	case Variant:
		return fromVariant(v)
	case *Variant:
		if v == nil {
			return TextValue("")
		}
		return fromVariant(*v)
	case nil:
		return TextValue("")
	}
	return parseText(fmt.Sprint(raw))
}

// NormalizeAll applies Normalize to every element.
func NormalizeAll(raw []any) []Value {
	values := make([]Value, len(raw))
	for i, r := range raw {
		values[i] = Normalize(r)
	}
	return values
}

func fromVariant(v Variant) Value {
	switch v.Type {
	case VariantInt:
		switch n := Normalize(v.Raw); n.Kind {
		case KindInt:
			return n
		case KindFloat:
			return IntValue(int64(n.Float))
		}
		if i, err := strconv.ParseInt(fmt.Sprint(v.Raw), 10, 64); err == nil {
			return IntValue(i)
		}
	case VariantDouble:
		switch n := Normalize(v.Raw); n.Kind {
		case KindFloat:
			return n
		case KindInt:
			return FloatValue(float64(n.Int))
		}
		if f, err := strconv.ParseFloat(fmt.Sprint(v.Raw), 64); err == nil {
			return FloatValue(f)
		}
	case VariantDate:
		if n := Normalize(v.Raw); n.IsTime() {
			t := n.Time.UTC()
			return DateValue(NewDate(t.Year(), t.Month(), t.Day()))
		}
	case VariantDateTime:
		if n := Normalize(v.Raw); n.IsTime() {
			return DateTimeValue(n.Time)
		}
	}
	return parseText(fmt.Sprint(v.Raw))
}

func parseText(s string) Value {
	if t, err := time.Parse(DateTimeLayout, s); err == nil {
		return DateTimeValue(t)
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateValue(Date{t})
	}
	return TextValue(s)
}
