package model

import (
	"golang.org/x/exp/constraints"
)

// TimeSeries is one dataset of a chart: the independent values X, the
// measurements Y and optional per-point metadata Info, aligned by index.
// Values are kept as supplied and normalized when plotted.
type TimeSeries struct {
	Name string
	X    []any
	Y    []any
	Info []any
}

// Len returns the number of points, the length of X.
func (t TimeSeries) Len() int {
	return len(t.X)
}

// Series is a numeric sequence, used for the encoded form of plotted values.
type Series[T constraints.Ordered] []T

func (s Series[T]) Values() []T {
	return s
}

func (s Series[T]) Length() int {
	return len(s)
}

// Last returns the value position steps back from the end.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// LastValues returns at most size values from the end of the series.
func (s Series[T]) LastValues(size int) []T {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Min returns the smallest value. It panics on an empty series.
func (s Series[T]) Min() T {
	min := s[0]
	for _, v := range s[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest value. It panics on an empty series.
func (s Series[T]) Max() T {
	max := s[0]
	for _, v := range s[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Copy returns an independent copy of the series.
func (s Series[T]) Copy() Series[T] {
	if s == nil {
		return nil
	}
	c := make(Series[T], len(s))
	copy(c, s)
	return c
}
