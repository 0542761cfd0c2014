// ABOUTME: Common storage errors
// ABOUTME: Enables consistent error handling across storage implementations

package storage

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a time-range query has start after end.
var ErrInvalidRange = errors.New("invalid time range: start is after end")

// ErrStorageUnavailable is returned when the backing medium cannot complete an operation.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrClosed is returned by a store after Close. It satisfies errors.Is(err, ErrStorageUnavailable).
var ErrClosed = fmt.Errorf("%w: store is closed", ErrStorageUnavailable)

// unavailable wraps a backend failure so callers can match ErrStorageUnavailable
// while the original cause stays reachable through errors.Is/As.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
