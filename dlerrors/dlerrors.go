// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package dlerrors defines the error taxonomy shared by every disklabel
// engine component.
package dlerrors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a disklabel engine error, independent of
// the specific message attached to it.
type Kind int

// Error kinds. Retryable kinds carry enough payload for a caller to retry
// the failing operation with fresh input; non-retryable kinds indicate an
// invariant violation or an unrecoverable I/O failure.
const (
	KindNoMem Kind = iota
	KindInternal
	KindIO
	KindPath
	KindNotOpen
	KindModule
	KindGeometry
	KindGeometryLength
	KindGeometryPointer
	KindPartitionNumber
	KindPartitionType
	KindPartition
	KindDisklabelFull
	KindDisklabelSystem
	KindParameter
	KindParameterSize
	KindCylinders
	KindHeads
	KindSectors
	KindSectorSize
	KindNotSupported
)

var kindNames = map[Kind]string{
	KindNoMem:           "ENoMem",
	KindInternal:        "EInternal",
	KindIO:              "EIO",
	KindPath:            "EPath",
	KindNotOpen:         "ENotOpen",
	KindModule:          "EModule",
	KindGeometry:        "EGeometry",
	KindGeometryLength:  "EGeometryLength",
	KindGeometryPointer: "EGeometryPointer",
	KindPartitionNumber: "EPartitionNumber",
	KindPartitionType:   "EPartitionType",
	KindPartition:       "EPartition",
	KindDisklabelFull:   "EDisklabelFull",
	KindDisklabelSystem: "EDisklabelSystem",
	KindParameter:       "EParameter",
	KindParameterSize:   "EParameterSize",
	KindCylinders:       "ECylinders",
	KindHeads:           "EHeads",
	KindSectors:         "ESectors",
	KindSectorSize:      "ESectorSize",
	KindNotSupported:    "ENotSupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "EUnknown"
}

// retryableKinds lists kinds for which a caller may supply fresh input and
// retry the same logical operation.
var retryableKinds = map[Kind]bool{
	KindPath:            true,
	KindNotOpen:         true,
	KindModule:          true,
	KindGeometry:        true,
	KindGeometryLength:  true,
	KindPartitionNumber: true,
	KindPartitionType:   true,
	KindCylinders:       true,
	KindHeads:           true,
	KindSectors:         true,
	KindSectorSize:      true,
}

// Error is a structured disklabel engine error. It always identifies which
// argument, if any, was at fault so a caller can retry with corrected input.
type Error struct {
	Kind Kind
	// Field names the argument at fault, e.g. "start", "end", "type".
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Kind, e.Msg, e.Field, e.errSuffix())
	}

	return fmt.Sprintf("%s: %s%s", e.Kind, e.Msg, e.errSuffix())
}

func (e *Error) errSuffix() string {
	if e.Err == nil {
		return ""
	}

	return ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the failing operation with
// fresh input.
func (e *Error) Retryable() bool {
	return retryableKinds[e.Kind]
}

// New builds a disklabel Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds a disklabel Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithField attaches the name of the argument at fault.
func (e *Error) WithField(field string) *Error {
	e.Field = field

	return e
}

// Wrap attaches an underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err

	return e
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}

	return false
}

// OutOfSpaceError is implemented by errors indicating that a requested
// geometry could not be satisfied for lack of room, as opposed to an
// overlap with an existing sibling partition.
type OutOfSpaceError interface {
	OutOfSpaceError()
}

type outOfSpace struct{ err *Error }

func (o outOfSpace) Error() string { return o.err.Error() }

func (o outOfSpace) Unwrap() error { return o.err }

func (outOfSpace) OutOfSpaceError() {}

// NewOutOfSpace builds an EGeometry error additionally classified as
// "out of space" rather than "overlaps a sibling".
func NewOutOfSpace(field, format string, args ...any) error {
	return outOfSpace{err: Newf(KindGeometry, format, args...).WithField(field)}
}

// IsOutOfSpace reports whether err is classified as an out-of-space error.
func IsOutOfSpace(err error) bool {
	_, ok := err.(OutOfSpaceError) //nolint:errorlint

	return ok
}
