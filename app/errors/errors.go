// Package errors provides structured error handling for the application.
package errors

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
)

// Log reports an error through the default slog logger. StructuredError
// metadata is rendered as attributes in sorted key order, with the cause
// first.
func Log(err error) {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		slog.Error(err.Error())
		return
	}

	args := make([]any, 0, (len(serr.metadata)+1)*2)
	if serr.cause != nil {
		args = append(args, "cause", serr.cause)
	}
	for _, k := range slices.Sorted(maps.Keys(serr.metadata)) {
		args = append(args, k, serr.metadata[k])
	}

	slog.Error(serr.Error(), args...)
}
