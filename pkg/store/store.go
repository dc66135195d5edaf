// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package store provides the durable record substrate shared by the
// mailbox and audit engines: keyed JSON records plus append-only line
// segments. Backends must guarantee that a reader never observes a
// half-written record for a concurrent Put.
package store

import (
	"context"
	"strings"

	"github.com/jllopis/agora/pkg/errors"
)

// ErrNotFound is returned by Get when no record exists for a key.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found", nil)

// Store is the persistence contract both engines are built on.
// Keys are slash-separated logical paths, e.g. "messages/msg_123".
type Store interface {
	// Put serializes value and durably writes it under key, replacing
	// any prior record atomically.
	Put(ctx context.Context, key string, value any) error

	// Get reads the record under key into dest. Returns ErrNotFound
	// when the key is absent.
	Get(ctx context.Context, key string, dest any) error

	// AppendLine durably appends one serialized line to the named
	// segment, creating it if absent.
	AppendLine(ctx context.Context, segment string, value any) error

	// ReadLines returns the raw lines of a segment in append order.
	// An absent segment yields no lines and no error.
	ReadLines(ctx context.Context, segment string) ([][]byte, error)

	// List returns the keys stored under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// splitKey validates a logical key and returns its path elements.
// Empty elements and traversal sequences are rejected.
func splitKey(key string) ([]string, error) {
	if key == "" {
		return nil, errors.New(errors.CodeInvalidInput, "empty key", nil)
	}
	parts := strings.Split(key, "/")
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return nil, errors.New(errors.CodeInvalidInput, "invalid key", nil).
				WithContext("key", key)
		}
	}
	return parts, nil
}
