package fn

import (
	"cmp"
	"slices"
)

// FilterMap applies f to each element and keeps the results f accepts,
// preserving order.
func FilterMap[T, U any](items []T, f func(T) (U, bool)) []U {
	var out []U
	for _, v := range items {
		if u, ok := f(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
