package d3d11

import "github.com/cockroachdb/errors"

// Errors reported by devices and contexts. Returned errors carry context
// and are matched with errors.Is.
var (
	// ErrInvalidArg reports an illegal argument: a map type the resource or
	// context cannot serve, a resource without CPU access, or creation
	// parameters that make no sense. Nothing is changed.
	ErrInvalidArg = errors.New("d3d11: invalid argument")

	// ErrWasStillDrawing is returned by a non-blocking map on a resource the
	// GPU still uses. The caller may retry.
	ErrWasStillDrawing = errors.New("d3d11: was still drawing")

	// ErrUnsupported reports a capability the device lacks or a native
	// creation failure.
	ErrUnsupported = errors.New("d3d11: unsupported")

	// ErrInvalidCall reports API misuse, such as finishing a command list on
	// the immediate context or executing a command list twice.
	ErrInvalidCall = errors.New("d3d11: invalid call")

	// ErrClosed is returned by a closed device.
	ErrClosed = errors.New("d3d11: device closed")
)

func invalidArgf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArg, format, args...)
}

func invalidCallf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidCall, format, args...)
}

// classify puts kind on the causal chain and keeps err as the secondary
// error. The message of err is kept in the result.
func classify(kind, err error) error {
	return errors.WithSecondaryError(errors.Wrapf(kind, "%v", err), err)
}

// unsupported classifies err as ErrUnsupported and attaches a detail naming
// the failing limit.
func unsupported(err error, detail string, args ...any) error {
	return errors.WithDetailf(classify(ErrUnsupported, err), detail, args...)
}
