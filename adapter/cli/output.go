package cli

import (
	"encoding/json"
	"errors"
	"io"
)

// ErrNotInitialized is returned by commands that need the database.
var ErrNotInitialized = errors.New("application not initialized - database connection required")

// JSONOutput reports whether --json was given.
func JSONOutput() bool {
	return asJSON
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
