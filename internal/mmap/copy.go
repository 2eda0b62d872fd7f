package mmap

import (
	"fmt"
	"runtime/debug"
)

// safeCopy copies src into dst, turning a fault on mapped memory (SIGBUS on a
// truncated file or a poisoned pmem line) into ErrFault instead of a crash.
func safeCopy(dst, src []byte) (err error) {
	if len(dst) != len(src) {
		return ErrOutOfBounds
	}
	if len(src) == 0 {
		return nil
	}

	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFault, r)
		}
	}()

	copy(dst, src)
	return nil
}
