// Package conv provides checked integer conversions.
//
// Use them where a value crosses into a narrower type and its range is not
// guaranteed by construction, such as sizes read from a manifest or page
// indexes handed to a 32-bit bitmap.
package conv
