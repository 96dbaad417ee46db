// Package collections has generic slice helpers.
package collections

// Apply applies the applicator function to each item in the input slice.
// The result keeps the input order.
func Apply[T, V any](items []T, applicator func(T) V) []V {
	result := make([]V, len(items))
	for i, item := range items {
		result[i] = applicator(item)
	}
	return result
}

// FilterMap applies fn to each item and keeps the results fn accepts, in order.
func FilterMap[T, V any](items []T, fn func(T) (V, bool)) []V {
	result := make([]V, 0, len(items))
	for _, item := range items {
		if v, ok := fn(item); ok {
			result = append(result, v)
		}
	}
	return result
}
