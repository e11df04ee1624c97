package utils

// Value dereferences v, returning the zero value when v is nil. Used for the
// optional pointer fields of provider JSON payloads.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
