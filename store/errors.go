// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds surfaced to callers (spec §7). There is no error kind for an
// expired lock: acquisition handles a stale lock internally (reclaim and
// retry) and never returns it to a caller.
type (
	// ConfigErr reports bad or conflicting initialization configuration.
	ConfigErr struct{ Reason string }

	// NotFoundErr reports that an operation referenced a non-existent
	// job/trigger where existence was required.
	NotFoundErr struct{ Kind, Key string }

	// AlreadyExistsErr reports a uniqueness violation on insert when
	// replace=false.
	AlreadyExistsErr struct{ Kind, Key string }

	// SerializationErr reports a job-data value that could not be
	// serialized, identifying the offending key.
	SerializationErr struct {
		Field string
		cause error
	}

	// UnsupportedErr reports a deliberately unimplemented operation.
	UnsupportedErr struct{ Operation string }

	// StorageErr wraps an underlying store I/O failure with context.
	StorageErr struct {
		Operation string
		cause     error
	}
)

func (e *ConfigErr) Error() string { return fmt.Sprintf("jobstore: config error: %s", e.Reason) }

func (e *NotFoundErr) Error() string { return fmt.Sprintf("jobstore: %s %q not found", e.Kind, e.Key) }

func (e *AlreadyExistsErr) Error() string {
	return fmt.Sprintf("jobstore: %s %q already exists", e.Kind, e.Key)
}

func (e *SerializationErr) Error() string {
	return fmt.Sprintf("jobstore: field %q is not serializable: %v", e.Field, e.cause)
}
func (e *SerializationErr) Unwrap() error { return e.cause }

func (e *UnsupportedErr) Error() string { return fmt.Sprintf("jobstore: %s is not supported", e.Operation) }

func (e *StorageErr) Error() string {
	return fmt.Sprintf("jobstore: storage error during %s: %v", e.Operation, e.cause)
}
func (e *StorageErr) Unwrap() error { return e.cause }

// newNotFound builds a NotFoundErr for the given collection kind and key.
func newNotFound(kind, key string) error { return &NotFoundErr{Kind: kind, Key: key} }

// newAlreadyExists builds an AlreadyExistsErr for the given collection kind
// and key.
func newAlreadyExists(kind, key string) error { return &AlreadyExistsErr{Kind: kind, Key: key} }

// newSerializationErr builds a SerializationErr identifying the offending
// data-map field.
func newSerializationErr(field string, cause error) error {
	return &SerializationErr{Field: field, cause: cause}
}

// newUnsupported builds an UnsupportedErr for the given operation name.
func newUnsupported(op string) error { return &UnsupportedErr{Operation: op} }

// errInvalidOpaqueField is wrapped into a SerializationErr when a stored
// document's opaque data-map field isn't the string codec.go wrote.
var errInvalidOpaqueField = errors.New("opaque data-map field is not a string")

// wrapStorageErr wraps a non-nil underlying error as a StorageErr, adding
// operation context the way the teacher's repository layer uses
// errors.Wrap. Returns nil when cause is nil.
func wrapStorageErr(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &StorageErr{Operation: op, cause: errors.Wrap(cause, op)}
}

// IsNotFound reports whether err is (or wraps) a NotFoundErr.
func IsNotFound(err error) bool {
	var e *NotFoundErr
	return errors.As(err, &e)
}

// IsAlreadyExists reports whether err is (or wraps) an AlreadyExistsErr.
func IsAlreadyExists(err error) bool {
	var e *AlreadyExistsErr
	return errors.As(err, &e)
}

// IsUnsupported reports whether err is (or wraps) an UnsupportedErr.
func IsUnsupported(err error) bool {
	var e *UnsupportedErr
	return errors.As(err, &e)
}
