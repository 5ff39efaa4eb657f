// Package options implements the functional option pattern shared by every
// configurable type of the EXI core (options records, sessions, tables).
package options

// Option configures a target of type T. T is normally a pointer to a config struct.
type Option[T any] interface {
	apply(T) error
}

// Func adapts a plain function into an Option.
type Func[T any] struct {
	fn func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.fn(target)
}

// New wraps a fallible setter into an Option.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{fn: fn}
}

// NoError wraps an infallible setter into an Option.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		fn: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply applies opts in order and stops at the first failing option.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}

// Validator is implemented by configuration targets that check their own consistency.
type Validator interface {
	Validate() error
}

// ApplyAndValidate applies opts and then runs the target's own consistency check.
func ApplyAndValidate[T Validator](target T, opts ...Option[T]) error {
	if err := Apply(target, opts...); err != nil {
		return err
	}

	return target.Validate()
}
