package database

import (
	"errors"
	"fmt"
	"strings"
)

const guardPrefix = "guard:"

// GuardError is returned when a guard statement inside a transaction fails.
// Code identifies which guard tripped; nothing in the transaction was applied.
type GuardError struct {
	Code string
}

func (e *GuardError) Error() string {
	return "guard failed: " + e.Code
}

// Is lets errors.Is(err, ErrGuard) match any guard failure
func (e *GuardError) Is(target error) bool {
	return target == ErrGuard
}

// GuardCode returns the code of the guard that aborted err, if any
func GuardCode(err error) (string, bool) {
	var ge *GuardError
	if errors.As(err, &ge) {
		return ge.Code, true
	}
	return "", false
}

// Guard renders a statement that aborts the surrounding transaction with code
// when cond holds.
func Guard(cond, code string) string {
	return fmt.Sprintf("IF %s { THROW %q }", cond, guardPrefix+code)
}

// parseGuard extracts a guard code from a database error message
func parseGuard(msg string) (*GuardError, bool) {
	i := strings.Index(msg, guardPrefix)
	if i < 0 {
		return nil, false
	}
	rest := msg[i+len(guardPrefix):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	if end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return nil, false
	}
	return &GuardError{Code: rest}, true
}

// isConflict reports whether msg describes an optimistic transaction conflict
func isConflict(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "transaction conflict") ||
		strings.Contains(m, "read or write conflict") ||
		strings.Contains(m, "resource busy")
}

// notExecuted matches the placeholder error SurrealDB reports for every
// statement of a failed transaction other than the one that failed.
func notExecuted(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "not executed due to a failed transaction")
}

// classify turns raw statement error messages into a package error. Guard
// failures win over conflicts, which win over the first real error.
func classify(msgs []string) error {
	if len(msgs) == 0 {
		return ErrQuery
	}
	for _, m := range msgs {
		if ge, ok := parseGuard(m); ok {
			return ge
		}
	}
	for _, m := range msgs {
		if isConflict(m) {
			return fmt.Errorf("%w: %s", ErrTxConflict, m)
		}
	}
	for _, m := range msgs {
		if !notExecuted(m) {
			return fmt.Errorf("%w: %s", ErrQuery, m)
		}
	}
	return fmt.Errorf("%w: %s", ErrQuery, msgs[0])
}
