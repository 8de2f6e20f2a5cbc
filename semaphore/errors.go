package semaphore

import "github.com/pkg/errors"

var (
	// ErrClosed is returned by Post and Wait after Close.
	ErrClosed = errors.New("semaphore: use of closed semaphore")

	// ErrOverflow is returned by Post when the count is already at the
	// maximum the backend can represent. The count is left unchanged.
	ErrOverflow = errors.New("semaphore: count overflow")

	// ErrInvalidCount is returned by New when the initial count exceeds the
	// maximum count.
	ErrInvalidCount = errors.New("semaphore: initial count exceeds maximum")
)

// fatalError marks a failure after which the semaphore must not be trusted:
// the backend rejected an operation for a reason other than a timeout or an
// interruption.
type fatalError struct {
	op  string
	err error
}

func (e *fatalError) Error() string {
	return "semaphore: " + e.op + ": " + e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

func fatal(op string, err error) error {
	return &fatalError{op: op, err: err}
}

// IsFatal reports whether err signals a broken semaphore or a caller logic
// error such as posting past the maximum count.
func IsFatal(err error) bool {
	var f *fatalError
	return errors.As(err, &f)
}
