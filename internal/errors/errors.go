package errors

import (
	"errors"
	"fmt"
)

// Errors internal to the storage backends. The public taxonomy surfaced to
// hosts lives in the oauthmodel package.
var (
	ErrCorruptData      = errors.New("corrupt persisted data")
	ErrWrongPassphrase  = errors.New("wrong passphrase or tampered data")
	ErrUnsupportedStore = errors.New("unsupported storage kind")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors, dropping nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
