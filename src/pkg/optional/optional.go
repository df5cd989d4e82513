package optional

import (
	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
)

type optionalTagT int

const (
	optionalNoneTag optionalTagT = iota
	optionalSomeTag
)

// Optional holds either a value or nothing. The zero value is None.
type Optional[T any] struct {
	tag   optionalTagT
	value T
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{
		tag:   optionalSomeTag,
		value: value,
	}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (opt *Optional[T]) Emplace(value T) {
	opt.tag = optionalSomeTag
	opt.value = value
}

func (opt *Optional[T]) Clear() {
	opt.tag = optionalNoneTag
	opt.value = *new(T) // for deep equality
}

func (opt Optional[T]) Unwrap() T {
	assert.Assert(opt.tag != optionalNoneTag, "unwrap of an empty optional")
	return opt.value
}

// Get returns the value and whether it is present.
func (opt Optional[T]) Get() (T, bool) {
	return opt.value, opt.tag == optionalSomeTag
}

func (opt Optional[T]) IsNone() bool {
	return opt.tag == optionalNoneTag
}

func (opt Optional[T]) IsSome() bool {
	return opt.tag == optionalSomeTag
}
