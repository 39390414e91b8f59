/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package firmware

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound  = errors.New("image not found")
	ErrTruncated = errors.New("image is shorter than the requested size")
	ErrBounds    = errors.New("transfer does not fit the image buffer")
)

// FatalError reports an image that opened but could not be read in full.
// Continuing would leave a partially filled window, so the caller is
// expected to terminate.
type FatalError struct {
	Op   string
	File string
	Err  error
}

func fatal(op, file string, err error) error {
	return &FatalError{Op: op, File: file, Err: err}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s(): %s: %v", e.Op, e.File, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func (e *FatalError) Cause() error {
	return e.Err
}

// IsFatal reports whether err, or anything it wraps, is a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
