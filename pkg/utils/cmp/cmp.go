package cmp

type BiPredicator[A any, B any] func(a A, b B) bool

// true if a and b have same elements in same order.
func SliceEq[T comparable](a []T, b []T) bool {
	return SliceEqWith(a, b, func(a, b T) bool { return a == b })
}

func SliceEqWith[T any, U any](a []T, b []U, pred BiPredicator[T, U]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !pred(a[i], b[i]) {
			return false
		}
	}
	return true
}

// true if a and b have same elements, ignoring order.
//
// Each element in a is matched with an element in b at most once,
// so multiplicity is significant.
func SliceContentEq[T comparable](a, b []T) bool {
	return SliceContentEqWith(a, b, func(a, b T) bool { return a == b })
}

func SliceContentEqWith[S, T any](a []S, b []T, equiv BiPredicator[S, T]) bool {
	if len(a) != len(b) {
		return false
	}

	used := make([]bool, len(b))
A:
	for _, ea := range a {
		for i, eb := range b {
			if used[i] {
				continue
			}
			if equiv(ea, eb) {
				used[i] = true
				continue A
			}
		}
		return false
	}
	return true
}

func MapEq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	return MapEqWith(a, b, func(a, b V) bool { return a == b })
}

func MapEqWith[K comparable, V any, U any](a map[K]V, b map[K]U, comparator BiPredicator[V, U]) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !comparator(va, vb) {
			return false
		}
	}
	return true
}
