package slices

// apply mapper for each element in sli, and return slice of results.
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for i, v := range sli {
		ret[i] = mapper(v)
	}
	return ret
}

// find the first element matching predicator.
//
// When no elements match, it returns (zero-value, false).
func First[T any](sli []T, predicator func(T) bool) (T, bool) {
	for _, v := range sli {
		if predicator(v) {
			return v, true
		}
	}
	return *new(T), false
}

// build map from slice. getkey should return the key for each element.
//
// If keys collide, the later element wins.
func ToMap[T any, K comparable](sli []T, getkey func(v T) K) map[K]T {
	ret := map[K]T{}
	for _, v := range sli {
		ret[getkey(v)] = v
	}
	return ret
}
