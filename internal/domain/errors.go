package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrAborted is returned when the operator declines a confirmation
	ErrAborted = errors.New("aborted by operator")

	// ErrNoModules is returned when a declaration snapshot contains no modules
	ErrNoModules = errors.New("no modules declared")
)

// StaticSafetyError reports every fatal finding of a verification phase.
// It is always raised before any transaction is submitted.
type StaticSafetyError struct {
	Phase    string
	Findings []Finding
}

func (e *StaticSafetyError) Error() string {
	lines := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		lines = append(lines, "  - "+f.String())
	}
	return fmt.Sprintf("%s failed with %d fatal finding(s):\n%s", e.Phase, len(e.Findings), strings.Join(lines, "\n"))
}

// InvariantViolation concerns build state rather than declared shape
type InvariantViolation struct {
	Subject  string
	Reason   string
	Expected string
	Actual   string
}

func (e *InvariantViolation) Error() string {
	if e.Expected == "" && e.Actual == "" {
		return fmt.Sprintf("invariant violated for %s: %s", e.Subject, e.Reason)
	}
	return fmt.Sprintf("invariant violated for %s: %s (expected %s, got %s)", e.Subject, e.Reason, e.Expected, e.Actual)
}

// TransactionFailure records a transaction that did not confirm
type TransactionFailure struct {
	Contract string
	Outcome  *models.TransactionOutcome
	Err      error
}

func (e *TransactionFailure) Error() string {
	reason := "transaction failed"
	if e.Err != nil {
		reason = e.Err.Error()
	} else if e.Outcome != nil && e.Outcome.Description != "" {
		reason = e.Outcome.Description
	}
	if e.Outcome != nil && e.Outcome.Hash != "" {
		return fmt.Sprintf("%s: %s (tx %s)", e.Contract, reason, e.Outcome.Hash)
	}
	return fmt.Sprintf("%s: %s", e.Contract, reason)
}

func (e *TransactionFailure) Unwrap() error {
	return e.Err
}

// TransactionFailures aggregates the failed transactions of one phase
type TransactionFailures []*TransactionFailure

func (e TransactionFailures) Error() string {
	sorted := make([]*TransactionFailure, len(e))
	copy(sorted, e)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Contract < sorted[j].Contract })

	lines := make([]string, 0, len(sorted))
	for _, f := range sorted {
		lines = append(lines, "  - "+f.Error())
	}
	return fmt.Sprintf("%d transaction(s) failed:\n%s", len(e), strings.Join(lines, "\n"))
}

// PersistenceError is returned when the deployment document cannot be read or written
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
