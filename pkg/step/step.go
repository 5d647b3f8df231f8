// Package step defines the resumable computation abstraction driven by the
// tickrun scheduler. A Stepper is a stepwise process that can be asked to
// advance one step: it either yields a value or signals exhaustion.
package step

// Stepper is a resumable computation.
//
// Next advances the computation by one step. It returns the value produced by
// that step and true, or the zero value and false once the computation is
// exhausted. After Next has returned false, further calls are undefined; the
// scheduler never resumes an exhausted Stepper.
type Stepper[T any] interface {
	Next() (T, bool)
}

// Func adapts a plain function to the Stepper interface.
type Func[T any] func() (T, bool)

func (f Func[T]) Next() (T, bool) {
	return f()
}

// FromSlice returns a Stepper that yields each element of values in order,
// then reports exhaustion.
func FromSlice[T any](values []T) Stepper[T] {
	i := 0
	return Func[T](func() (T, bool) {
		if i >= len(values) {
			var zero T
			return zero, false
		}
		v := values[i]
		i++
		return v, true
	})
}

// Empty returns a Stepper that is exhausted from the start.
func Empty[T any]() Stepper[T] {
	return Func[T](func() (T, bool) {
		var zero T
		return zero, false
	})
}

// Counter returns a Stepper that yields 0, 1, ..., n-1.
func Counter(n int) Stepper[int] {
	next := 0
	return Func[int](func() (int, bool) {
		if next >= n {
			return 0, false
		}
		v := next
		next++
		return v, true
	})
}

// Forever returns a Stepper that yields v on every step and never exhausts.
// Tasks built on it only end when they are stopped.
func Forever[T any](v T) Stepper[T] {
	return Func[T](func() (T, bool) {
		return v, true
	})
}
