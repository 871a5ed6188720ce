// Package faults defines the error taxonomy shared across the sync engine.
//
// Components tag failures with one of the sentinel markers below so callers
// can classify them without string matching: connectivity failures are
// tolerated during presence polling but fatal mid-transfer, capability
// failures are never retryable, timeouts abort the enclosing batch.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnectivity marks unreachable-device and network transport failures.
	ErrConnectivity = errors.New("connectivity error")
	// ErrProtocol marks unexpected response shapes and non-success statuses.
	ErrProtocol = errors.New("protocol error")
	// ErrFormat marks malformed archives or package documents.
	ErrFormat = errors.New("format error")
	// ErrCapability marks operations the device interface does not support.
	ErrCapability = errors.New("unsupported operation")
	// ErrTimeout marks wall-clock budget overruns for a single unit of work.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds one descriptive error carrying component and operation context
// while tagging it with the provided marker for later classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProtocol
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTimeout reports whether err is tagged as a timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCapability reports whether err is tagged as a capability failure.
func IsCapability(err error) bool { return errors.Is(err, ErrCapability) }

// IsConnectivity reports whether err is tagged as a connectivity failure.
func IsConnectivity(err error) bool { return errors.Is(err, ErrConnectivity) }

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "sync failure"
	}
	return strings.Join(parts, ": ")
}
