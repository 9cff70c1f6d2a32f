// Package id provides unique identifier generation for assets.
package id

import "github.com/google/uuid"

// Generate creates a new unique asset ID.
// Format: random (version 4) UUID in canonical form.
// Example: 3f2b8c1e-5d4a-4e8f-9b1c-2a7d6e0f4c91
func Generate() string {
	return uuid.NewString()
}

// Valid reports whether s is a well-formed asset ID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
