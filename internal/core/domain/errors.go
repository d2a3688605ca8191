package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown storage backend or field type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Dot path errors.

	// ErrDotPathNotFound indicates a dotpath segment does not exist in the data.
	ErrDotPathNotFound = errors.New("dotpath not found")

	// Index errors.

	// ErrUnclassifiableValue indicates a value has no index partition.
	// This is a configuration error: every indexed path must resolve to a scalar.
	ErrUnclassifiableValue = errors.New("unclassifiable index value")

	// ErrIndexNotRegistered indicates the named index is not registered for the collection.
	ErrIndexNotRegistered = errors.New("index not registered")

	// ErrReindexInProgress indicates a reindex checkpoint exists that has not completed.
	ErrReindexInProgress = errors.New("reindex in progress")
)

// DotPathNotFoundError reports the first segment of a dotpath that could not be resolved.
type DotPathNotFoundError struct {
	// Path is the full dotpath that was attempted.
	Path DotPath

	// Position is the index of the failing segment within Path.
	Position int

	// Reason describes why the segment failed.
	Reason string
}

// Segment returns the failing segment.
func (e *DotPathNotFoundError) Segment() string {
	if e.Position < 0 || e.Position >= len(e.Path) {
		return ""
	}
	return e.Path[e.Position]
}

func (e *DotPathNotFoundError) Error() string {
	msg := fmt.Sprintf("dotpath %q: segment %q not found", e.Path.String(), e.Segment())
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is matches ErrDotPathNotFound and ErrNotFound.
func (e *DotPathNotFoundError) Is(target error) bool {
	return target == ErrDotPathNotFound || target == ErrNotFound
}

// IsDotPathNotFound reports whether err is a dotpath resolution failure.
func IsDotPathNotFound(err error) bool {
	return errors.Is(err, ErrDotPathNotFound)
}

func notFoundAt(path DotPath, pos int, reason ...string) error {
	return &DotPathNotFoundError{Path: path, Position: pos, Reason: strings.Join(reason, "; ")}
}
