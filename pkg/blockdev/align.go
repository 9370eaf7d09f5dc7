package blockdev

import (
	"fmt"
	"unsafe"
)

// ValidAlignment reports whether align can be used as a transfer buffer
// alignment. 0 and 1 mean "no constraint".
func ValidAlignment(align int) bool {
	return align >= 0 && align&(align-1) == 0
}

// AlignedBuffer allocates a zeroed buffer of size bytes whose first byte
// sits on an align-byte boundary.
func AlignedBuffer(size, align int) []byte {
	if !ValidAlignment(align) {
		panic(fmt.Sprintf("blockdev: alignment %d is not a power of two", align))
	}
	if align <= 1 || size == 0 {
		return make([]byte, size)
	}

	raw := make([]byte, size+align-1)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) & uintptr(align-1)); rem != 0 {
		off = align - rem
	}
	return raw[off : off+size : off+size]
}

// IsAligned reports whether buf starts on an align-byte boundary.
func IsAligned(buf []byte, align int) bool {
	if align <= 1 || len(buf) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&buf[0]))&uintptr(align-1) == 0
}
