// Package priqueue provides a comparator-ordered sequence.
//
// Items are kept in the order implied by a caller-supplied comparator. The
// queue owns only its bookkeeping: items are referenced, never copied, and
// their lifetime belongs to the caller. The zero value of the element type
// is reserved to mean "no item", so the queue is meant for pointer (or other
// nillable) elements; a Queue[int] can never hold 0.
package priqueue

import (
	"errors"

	"golang.org/x/exp/slices"
)

// ErrNilItem is returned by Offer when the item is the zero value of T.
var ErrNilItem = errors.New("priqueue: nil item")

// Queue is an ordered sequence of items. The zero value of T (nil for
// pointer types, 0 or "" for scalars) is treated as "no item" and is never
// stored.
//
// Queue is not safe for concurrent use.
type Queue[T comparable] struct {
	items []T
	cmp   func(candidate, existing T) int
}

// New returns an empty queue ordered by cmp. A negative result of
// cmp(candidate, existing) places the candidate before the existing element;
// any other result, including zero, places it after.
func New[T comparable](cmp func(candidate, existing T) int) *Queue[T] {
	return &Queue[T]{cmp: cmp}
}

// Offer inserts item before the first element e such that cmp(item, e) < 0,
// or at the end if there is none. It returns the zero-based position the
// item landed at. Items comparing equal keep arrival order. The zero value
// of T is rejected with ErrNilItem.
func (q *Queue[T]) Offer(item T) (int, error) {
	var zero T
	if item == zero {
		return -1, ErrNilItem
	}
	pos := slices.IndexFunc(q.items, func(e T) bool {
		return q.cmp(item, e) < 0
	})
	if pos < 0 {
		pos = len(q.items)
	}
	q.items = slices.Insert(q.items, pos, item)
	return pos, nil
}

// Peek returns the front item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	return q.At(0)
}

// Poll removes and returns the front item.
func (q *Queue[T]) Poll() (T, bool) {
	return q.RemoveAt(0)
}

// At returns the item at position index. Positions outside [0, Size()) report
// false.
func (q *Queue[T]) At(index int) (T, bool) {
	if !q.inRange(index) {
		var zero T
		return zero, false
	}
	return q.items[index], true
}

// Remove deletes every element identical to item and returns how many were
// removed. The comparator is not consulted.
func (q *Queue[T]) Remove(item T) int {
	before := len(q.items)
	q.items = slices.DeleteFunc(q.items, func(e T) bool {
		return e == item
	})
	return before - len(q.items)
}

// RemoveAt removes and returns the element at index, shifting later elements
// down by one.
func (q *Queue[T]) RemoveAt(index int) (T, bool) {
	if !q.inRange(index) {
		var zero T
		return zero, false
	}
	item := q.items[index]
	q.items = slices.Delete(q.items, index, index+1)
	return item, true
}

// IndexFunc returns the position of the first element satisfying pred, or -1.
func (q *Queue[T]) IndexFunc(pred func(T) bool) int {
	return slices.IndexFunc(q.items, pred)
}

// Items returns a copy of the elements in queue order.
func (q *Queue[T]) Items() []T {
	return slices.Clone(q.items)
}

// Size returns the number of elements in the queue.
func (q *Queue[T]) Size() int {
	return len(q.items)
}

// Destroy drops the queue's bookkeeping. Referenced items are left to the
// caller.
func (q *Queue[T]) Destroy() {
	clear(q.items)
	q.items = nil
}

func (q *Queue[T]) inRange(index int) bool {
	return index >= 0 && index < len(q.items)
}
