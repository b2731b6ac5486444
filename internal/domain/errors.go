package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRole means the requested role is outside the closed role set.
	ErrInvalidRole = errors.New("invalid role")
	// ErrRoleUnavailable means the role is valid but not currently selectable.
	ErrRoleUnavailable = errors.New("role not available")
	// ErrAllStrategiesFailed means every switch strategy was attempted and failed.
	ErrAllStrategiesFailed = errors.New("all switch strategies failed")
	// ErrStaleWrite means a write lost the timestamp race to a newer commit.
	ErrStaleWrite = errors.New("stale write discarded")
	// ErrTestModeInactive means an operation requiring active test mode was
	// called while test mode was off or expired.
	ErrTestModeInactive = errors.New("test mode not active")
)

// BackendWriteError reports the physical writes that failed during a
// best-effort fan-out. It is only returned when at least one backend
// accepted the write; a total failure surfaces the underlying errors
// directly.
type BackendWriteError struct {
	Failures map[string]error // backend/key identifier -> cause
}

func (e *BackendWriteError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for target, err := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", target, err))
	}
	return "partial backend write failure: " + strings.Join(parts, "; ")
}
