// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package apperr defines the error taxonomy shared by every runtime
// component: InvalidInput, NotFound, Duplicate, Transient, External,
// Consistency, and Fatal. Every user-visible failure is a short string
// prefixed with one of these stable category markers so log scraping and
// tests can key off the prefix rather than free-text messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the stable error categories from spec §7.
type Kind string

const (
	KindInvalidInput Kind = "InvalidInput"
	KindNotFound     Kind = "NotFound"
	KindDuplicate    Kind = "Duplicate"
	KindTransient    Kind = "Transient"
	KindExternal     Kind = "External"
	KindConsistency  Kind = "Consistency"
	KindFatal        Kind = "Fatal"
)

// Error is a category-tagged application error. Message is the
// user-visible, short, prefixed string; Err is the optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// DuplicateID carries the existing record id for Kind == KindDuplicate,
	// per spec §4.3's add_memory contract.
	DuplicateID string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Duplicate builds a KindDuplicate error carrying the existing id, per
// spec §4.3: rejected inserts return accepted=false with the existing id.
func Duplicate(message, existingID string) *Error {
	return &Error{Kind: KindDuplicate, Message: message, DuplicateID: existingID}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
