package flash

import (
	"errors"
	"fmt"
)

// ErrorKind classifies Adapter errors the way NOR flash drivers do.
type ErrorKind int

const (
	// KindOther covers every failure reported by the block device. SD
	// cards give no finer classification than "the command failed".
	KindOther ErrorKind = iota
	KindNotAligned
	KindOutOfBounds
)

func (k ErrorKind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindNotAligned:
		return "not aligned"
	case KindOutOfBounds:
		return "out of bounds"
	default:
		return "invalid/unknown"
	}
}

var (
	ErrNotAligned      = errors.New("flash: range is not aligned to the erase size")
	ErrSpansBlocks     = errors.New("flash: range spans more than one block")
	ErrOutOfBounds     = errors.New("flash: range is outside the device")
	ErrInvalidGeometry = errors.New("flash: invalid geometry")
)

// Error is the error type returned by Adapter operations. Err is either one
// of the range sentinels above or the error reported by the block device.
type Error struct {
	Op     string
	Offset uint32
	Kind   ErrorKind
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind returns the kind of err. Errors that did not come from an Adapter
// are reported as KindOther.
func Kind(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindOther
}

func deviceError(op string, offset uint32, err error) error {
	return &Error{Op: op, Offset: offset, Kind: KindOther, Err: err}
}

func rangeError(op string, offset uint32, err error) error {
	kind := KindOutOfBounds
	if errors.Is(err, ErrNotAligned) || errors.Is(err, ErrSpansBlocks) {
		kind = KindNotAligned
	}
	return &Error{Op: op, Offset: offset, Kind: kind, Err: err}
}
