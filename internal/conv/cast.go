package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// ToUint32 converts v to uint32.
func ToUint32[T Integer](v T) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, overflow(v, "uint32")
	}
	return uint32(v), nil
}

// ToInt converts v to int.
func ToInt[T Integer](v T) (int, error) {
	if v < 0 {
		if int64(v) < math.MinInt {
			return 0, overflow(v, "int")
		}
		return int(v), nil
	}
	if uint64(v) > math.MaxInt {
		return 0, overflow(v, "int")
	}
	return int(v), nil
}

func overflow[T Integer](v T, target string) error {
	return fmt.Errorf("%w: %d does not fit %s", ErrOverflow, v, target)
}
