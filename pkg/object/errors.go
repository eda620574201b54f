package object

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that no object with the requested hash is stored.
	ErrNotFound = errors.New("object not found")

	// ErrCorruptObject reports that stored bytes do not hash back to the
	// requested id.
	ErrCorruptObject = errors.New("corrupt object")

	// ErrMalformedObject reports a structurally invalid serialized object.
	ErrMalformedObject = errors.New("malformed object")
)

// CorruptObjectError carries the expected and recomputed digests of a
// failed integrity check.
type CorruptObjectError struct {
	Want Hash
	Got  Hash
}

func (e *CorruptObjectError) Error() string {
	return fmt.Sprintf("object %s: %v (stored bytes hash to %s)", e.Want, ErrCorruptObject, e.Got)
}

func (e *CorruptObjectError) Is(target error) bool {
	return target == ErrCorruptObject
}

// TypeMismatchError reports that a typed read found an object of a
// different kind than requested.
type TypeMismatchError struct {
	Hash Hash
	Want ObjectType
	Got  ObjectType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("object %s: type mismatch: got %q, want %q", e.Hash, e.Got, e.Want)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrMalformedObject
}
