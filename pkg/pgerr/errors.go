// SPDX-License-Identifier: Apache-2.0

// Package pgerr defines the structured error kinds the query engine
// returns, one type per failure category from the error-handling design:
// parse, translation, database, resource-limit, and referential errors.
// Each is a plain struct with an Error() method, composed with %w at call
// sites, following the teacher migration tool's error shape.
package pgerr

import "fmt"

// ParseError signals that a SPARQL (or SPARQL Update) query could not be
// parsed. Position is 1-based and zero when unknown.
type ParseError struct {
	Query  string
	Line   int
	Column int
	Reason string
}

func (e ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("parse error: %s", e.Reason)
}

// TranslationError signals that the algebra tree contains a construct the
// compiler does not support, or that an internal bookkeeping invariant
// was violated (e.g. a projected variable with no mapping).
type TranslationError struct {
	Node   string
	Reason string
}

func (e TranslationError) Error() string {
	return fmt.Sprintf("cannot translate %s: %s", e.Node, e.Reason)
}

// DatabaseError wraps a failure returned by the backing Postgres
// database. SQL holds the failing statement; the stores that construct
// this error always fill it in, whether or not diagnostic mode is enabled.
type DatabaseError struct {
	SQL string
	Err error
}

func (e DatabaseError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("database error: %v", e.Err)
	}
	return fmt.Sprintf("database error: %v\n--- sql ---\n%s", e.Err, e.SQL)
}

func (e DatabaseError) Unwrap() error { return e.Err }

// ResourceLimitError signals that a row or memory cap tripped during
// execution. Rows already collected remain valid; RowsReturned counts them
// and Limit names the cap that tripped.
type ResourceLimitError struct {
	RowsReturned int
	Limit        string // "max_rows" or "max_memory_mb"
}

func (e ResourceLimitError) Error() string {
	return fmt.Sprintf("result truncated at %d rows: %s limit reached", e.RowsReturned, e.Limit)
}

// ReferentialError signals an operation refused because of a live
// reference, e.g. deleting a term still used by a quad.
type ReferentialError struct {
	TermUUID string
	Reason   string
}

func (e ReferentialError) Error() string {
	return fmt.Sprintf("not deleted, reason=%s: term %s is still referenced", e.Reason, e.TermUUID)
}

// InvalidSpaceIDError signals a space identifier failed the
// alphanumeric-and-underscore, no-leading-digit validation required
// before it can be interpolated into a table name.
type InvalidSpaceIDError struct {
	SpaceID string
}

func (e InvalidSpaceIDError) Error() string {
	return fmt.Sprintf("invalid space id %q: must be alphanumeric/underscore and not start with a digit", e.SpaceID)
}

// UnsupportedUpdateFormError signals an UPDATE operation name the
// translator does not recognize.
type UnsupportedUpdateFormError struct {
	Form string
}

func (e UnsupportedUpdateFormError) Error() string {
	return fmt.Sprintf("unsupported update form: %s", e.Form)
}
