// Package ident issues the lexically sortable identifiers used for
// rooms and tables.
package ident

import "github.com/oklog/ulid/v2"

// NewID returns a fresh ULID. The package-default entropy source is
// safe for concurrent callers.
func NewID() string {
	return ulid.Make().String()
}
