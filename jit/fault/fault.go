// This file is part of Cellforge.
//
// Cellforge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellforge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellforge.  If not, see <https://www.gnu.org/licenses/>.

// Package fault represents the unrecoverable conditions of the JIT layer.
// Fatal errors are returned to the embedding application like any other error
// but are recognisable with IsFatal(). They must never be logged and ignored.
//
// A single process-wide handler can be installed with InstallHandler(). The
// handler is called for every fatal error created with Errorf() or recovered
// by Guard().
package fault

import (
	"errors"
	"fmt"
	"sync"
)

// Fatal is the error type for unrecoverable conditions.
type Fatal struct {
	msg string
	err error
}

func (f *Fatal) Error() string {
	return f.msg
}

// Unwrap returns the wrapped error, if any.
func (f *Fatal) Unwrap() error {
	return f.err
}

var (
	handlerOnce sync.Once
	handler     func(error)
)

// InstallHandler installs the process-wide fatal error handler. Only the
// first call has any effect. Returns true if this call installed the handler.
func InstallHandler(h func(error)) bool {
	var installed bool
	handlerOnce.Do(func() {
		handler = h
		installed = true
	})
	return installed
}

func notify(err error) {
	if handler != nil {
		handler(err)
	}
}

// Errorf creates a new fatal error. Formatting follows fmt.Errorf() and the
// %w verb is supported.
func Errorf(format string, a ...any) error {
	wrapped := fmt.Errorf(format, a...)
	f := &Fatal{
		msg: wrapped.Error(),
		err: errors.Unwrap(wrapped),
	}
	notify(f)
	return f
}

// IsFatal returns true if the error, or any error it wraps, is a fatal error.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}

// Guard runs the function and converts any panic into a fatal error. Errors
// returned normally by the function are returned unchanged.
func Guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch r := r.(type) {
			case error:
				err = Errorf("backend abort: %w", r)
			default:
				err = Errorf("backend abort: %v", r)
			}
		}
	}()
	return f()
}
