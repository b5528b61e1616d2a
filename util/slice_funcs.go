package util

// Contains returns whether the given slice contains the given element.
func Contains[T comparable](slice []T, elem T) bool {
	for _, x := range slice {
		if x == elem {
			return true
		}
	}

	return false
}

// Map applies a function to the given slice and returns the transformed slice.
func Map[T, R any](slice []T, f func(T) R) []R {
	mSlice := make([]R, len(slice))

	for i, elem := range slice {
		mSlice[i] = f(elem)
	}

	return mSlice
}

// Remove returns slice with the first occurrence of elem removed.  The
// original ordering of the remaining elements is preserved.
func Remove[T comparable](slice []T, elem T) []T {
	for i, x := range slice {
		if x == elem {
			return append(slice[:i], slice[i+1:]...)
		}
	}

	return slice
}

// InsertAt inserts elem into slice at index ndx.
func InsertAt[T any](slice []T, ndx int, elem T) []T {
	slice = append(slice, elem)
	copy(slice[ndx+1:], slice[ndx:])
	slice[ndx] = elem
	return slice
}

// IndexOf returns the index of elem in slice or -1 if it is not present.
func IndexOf[T comparable](slice []T, elem T) int {
	for i, x := range slice {
		if x == elem {
			return i
		}
	}

	return -1
}
