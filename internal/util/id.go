package util

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewID returns a time-ordered ULID, optionally prefixed ("job_01J...").
func NewID(prefix string) string {
	id := strings.ToLower(ulid.Make().String())
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
