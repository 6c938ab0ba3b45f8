package ref

// Ref returns a pointer to the given value.
func Ref[T any](value T) *T {
	return &value
}
