// Package match implements the predicate algebra behaviors are bound with:
// pure, side-effect-free matchers over type, method and field descriptions,
// composable through conjunction, disjunction and negation. An ill-typed
// combination is impossible to construct; matching itself never fails.
package match

import "fmt"

// Matcher is a pure, total predicate over a description. Matchers carry a
// printable form so resolution diagnostics can name the rule that fired.
type Matcher[T any] struct {
	repr string
	fn   func(T) bool
}

// New wraps a predicate function with a printable name.
func New[T any](repr string, fn func(T) bool) Matcher[T] {
	return Matcher[T]{repr: repr, fn: fn}
}

// Matches evaluates the predicate.
func (m Matcher[T]) Matches(target T) bool {
	return m.fn(target)
}

func (m Matcher[T]) String() string {
	return m.repr
}

// Any matches every description.
func Any[T any]() Matcher[T] {
	return New("any()", func(T) bool { return true })
}

// None matches nothing.
func None[T any]() Matcher[T] {
	return New("none()", func(T) bool { return false })
}

// And matches when every operand matches, evaluated left to right with
// short-circuiting.
func And[T any](ms ...Matcher[T]) Matcher[T] {
	return New(join("and", ms), func(target T) bool {
		for _, m := range ms {
			if !m.Matches(target) {
				return false
			}
		}
		return true
	})
}

// Or matches when any operand matches, evaluated left to right with
// short-circuiting.
func Or[T any](ms ...Matcher[T]) Matcher[T] {
	return New(join("or", ms), func(target T) bool {
		for _, m := range ms {
			if m.Matches(target) {
				return true
			}
		}
		return false
	})
}

// Not inverts a matcher.
func Not[T any](m Matcher[T]) Matcher[T] {
	return New(fmt.Sprintf("not(%s)", m), func(target T) bool {
		return !m.Matches(target)
	})
}

func join[T any](op string, ms []Matcher[T]) string {
	out := "("
	for i, m := range ms {
		if i > 0 {
			out += " " + op + " "
		}
		out += m.String()
	}
	return out + ")"
}
