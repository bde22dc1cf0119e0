// Package apperr defines the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrSelfReference is returned when an entity assignment would make a
	// name refer to itself, directly or through its entity path.
	ErrSelfReference = errors.New("illegal self-reference")

	// ErrCardinality is returned when an annotation would exceed the
	// annotator or annotatant cap declared by its link type.
	ErrCardinality = errors.New("cardinality violation")

	ErrUnknownType = errors.New("unknown link type")

	ErrInvalidInput = errors.New("invalid input")
)
