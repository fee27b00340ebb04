package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingID   = errors.New("id is required")
	ErrMissingType = errors.New("type is required")
	ErrMissingFrom = errors.New("person_from_id is required")
	ErrMissingTo   = errors.New("person_to_id is required")
)

// Sentinel errors for the relationship engine. Typed errors below match these through Is.
var (
	ErrMalformedGraph      = errors.New("malformed family graph")
	ErrPersonNotFound      = errors.New("person not found")
	ErrPathSearchExhausted = errors.New("path search exhausted")
	ErrInvalidRelationship = errors.New("invalid relationship")
	ErrMatrixTooLarge      = errors.New("too many persons for relationship matrix")
	ErrTreeNotFound        = errors.New("family tree not found")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

// MalformedGraphError reports input rejected while building a family graph.
type MalformedGraphError struct {
	Reason string
}

func (e *MalformedGraphError) Error() string {
	return "malformed family graph: " + e.Reason
}

// Is reports whether target is ErrMalformedGraph.
func (e *MalformedGraphError) Is(target error) bool { return target == ErrMalformedGraph }

// PersonNotFoundError names an id absent from the graph.
type PersonNotFoundError struct {
	ID string
}

func (e *PersonNotFoundError) Error() string {
	return fmt.Sprintf("person not found: %q", e.ID)
}

// Is reports whether target is ErrPersonNotFound.
func (e *PersonNotFoundError) Is(target error) bool { return target == ErrPersonNotFound }

// PathSearchExhaustedError reports that a bounded search stopped before exploring
// everything. Results returned alongside it are approximate.
type PathSearchExhaustedError struct {
	Limit      string
	PathsFound int
}

func (e *PathSearchExhaustedError) Error() string {
	return fmt.Sprintf("path search exhausted: %s limit reached after %d paths", e.Limit, e.PathsFound)
}

// Is reports whether target is ErrPathSearchExhausted.
func (e *PathSearchExhaustedError) Is(target error) bool { return target == ErrPathSearchExhausted }

// InvalidRelationshipError reports a self-referential or impossible degree pair.
type InvalidRelationshipError struct {
	Reason string
}

func (e *InvalidRelationshipError) Error() string {
	return "invalid relationship: " + e.Reason
}

// Is reports whether target is ErrInvalidRelationship.
func (e *InvalidRelationshipError) Is(target error) bool { return target == ErrInvalidRelationship }
