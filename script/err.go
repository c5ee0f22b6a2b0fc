package script

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	ErrMachineFrozen = errors.New(f("machine is frozen"))
	ErrImageValue    = errors.New(f("image value is not an int64"))
)

// ErrImageType is a Starlark value that cannot be used as a program image.
type ErrImageType string

func (err ErrImageType) Error() string {
	return f("%v is not a program image", string(err))
}
