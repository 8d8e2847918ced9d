package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Checker is a back-end that can report readiness.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckAll pings every checker and reports the ones that failed.
func CheckAll(ctx context.Context, checkers ...Checker) map[string]string {
	failures := map[string]string{}
	for _, c := range checkers {
		if err := c.Ping(ctx); err != nil {
			failures[c.Name()] = err.Error()
		}
	}
	return failures
}

// Summary joins failures into one error, or returns nil.
func Summary(failures map[string]string) error {
	if len(failures) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failures))
	for name, msg := range failures {
		parts = append(parts, fmt.Sprintf("%s: %s", name, msg))
	}
	sort.Strings(parts)
	return fmt.Errorf("backends not ready: %s", strings.Join(parts, "; "))
}
