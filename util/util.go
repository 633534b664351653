package util

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func Tern[T any](cond bool, a T, b T) T {
	if cond {
		return a
	}
	return b
}

func Assert(cond bool, msg ...string) {
	if !cond {
		if len(msg) > 0 {
			panic(fmt.Sprint("Assertion failed: ", msg))
		}
		panic("Assertion failed")
	}
}

func Assertf(cond bool, format string, v ...interface{}) {
	if !cond {
		panic("Assertion failed: " + fmt.Sprintf(format, v...))
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

type Optional[T any] struct {
	val     T
	present bool
}

func NewOptional[T any](v T) Optional[T] {
	return Optional[T]{val: v, present: true}
}

func (o Optional[T]) Present() bool { return o.present }

func (o *Optional[T]) Set(v T) {
	o.val = v
	o.present = true
}

func (o *Optional[T]) Clear() {
	var zero T
	o.val = zero
	o.present = false
}

func (o Optional[T]) MustGet() T {
	Assert(o.present, "Optional value not present")
	return o.val
}

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) {
	return o.val, o.present
}

func (o Optional[T]) GetOr(def T) T {
	if o.present {
		return o.val
	}
	return def
}

func (o Optional[T]) String() string {
	if !o.present {
		return "None"
	}
	return fmt.Sprint(o.val)
}
