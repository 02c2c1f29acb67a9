package util

// Filter returns the elements of s matching p in a new slice, s itself is left untouched
// so it can be shared by other readers
func Filter[T any](s []T, p func(T) bool) []T {
	filtered := make([]T, 0, len(s))

	for _, e := range s {
		if p(e) {
			filtered = append(filtered, e)
		}
	}

	return filtered
}
