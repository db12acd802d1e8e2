// Package pipelineerr defines the closed error-kind taxonomy for the
// evaluation pipeline. Every phase returns either its output or one of
// these kinds, wrapped with enough context to explain what went wrong at
// which boundary; there is no retry, no backoff, and no partial-success
// completion below phase 7.
package pipelineerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is against these to classify a failure
// without caring about the specific offending field or ID.
var (
	ErrConfig        = errors.New("config error")
	ErrHashMismatch  = errors.New("hash mismatch")
	ErrValidation    = errors.New("validation error")
	ErrInvariant     = errors.New("invariant error")
	ErrCoverage      = errors.New("coverage error")
	ErrWeight        = errors.New("weight error")
	ErrRouting       = errors.New("routing error")
	ErrHermeticity   = errors.New("hermeticity error")
	ErrTimeout       = errors.New("timeout error")
	ErrInternal      = errors.New("internal error")
)

// ConfigError reports a phase 0 configuration fault: a missing required
// key, an unreadable path, or an active-phase set that doesn't match
// {0,1,3,4,5,6,7}.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return errors.Join(ErrConfig, e.Err) }

// NewConfigError builds a ConfigError for the named field.
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// HashMismatchError reports a questionnaire or chunk content-hash
// mismatch against a declared value.
type HashMismatchError struct {
	Subject  string // e.g. "questionnaire"
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: declared %s, computed %s", e.Subject, e.Expected, e.Actual)
}

func (e *HashMismatchError) Unwrap() error { return ErrHashMismatch }

// ValidationError reports a contract violation at a phase's input or
// output boundary.
type ValidationError struct {
	Phase  int
	Stage  string // "input" or "output"
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("phase %d %s validation failed: %v", e.Phase, e.Stage, e.Issues)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvariantError reports a failed post-execution invariant predicate.
type InvariantError struct {
	Phase     int
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("phase %d invariant %q failed: %s", e.Phase, e.Invariant, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// CoverageError reports fewer items than AggregationSettings expected,
// raised only when abort-on-insufficient is set.
type CoverageError struct {
	Level    string // "dimension", "area", "cluster"
	Key      string
	Expected int
	Actual   int
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("%s coverage shortfall for %s: expected %d, got %d", e.Level, e.Key, e.Expected, e.Actual)
}

func (e *CoverageError) Unwrap() error { return ErrCoverage }

// WeightError reports a weight table problem when fallback to equal
// weights is forbidden.
type WeightError struct {
	Level  string
	Key    string
	Detail string
}

func (e *WeightError) Error() string {
	return fmt.Sprintf("%s weight error for %s: %s", e.Level, e.Key, e.Detail)
}

func (e *WeightError) Unwrap() error { return ErrWeight }

// RoutingError reports a chunk-routing failure: no matching chunk, or a
// matched chunk whose tags disagree with the question's.
type RoutingError struct {
	QuestionID string
	Detail     string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing error for question %s: %s", e.QuestionID, e.Detail)
}

func (e *RoutingError) Unwrap() error { return ErrRouting }

// HermeticityError reports a cluster membership violation: a missing
// mandatory member or an alien area.
type HermeticityError struct {
	ClusterID string
	Detail    string
}

func (e *HermeticityError) Error() string {
	return fmt.Sprintf("hermeticity violation in cluster %s: %s", e.ClusterID, e.Detail)
}

func (e *HermeticityError) Unwrap() error { return ErrHermeticity }

// TimeoutError reports a per-phase budget exceeded.
type TimeoutError struct {
	Phase int
	Limit string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("phase %d exceeded its timeout budget (%s)", e.Phase, e.Limit)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// InternalError wraps an unexpected fault. Only phase 7 may catch one of
// these and still emit a fallback output; every other phase treats it as
// terminal like any other kind.
type InternalError struct {
	Phase int
	Err   error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("phase %d internal error: %v", e.Phase, e.Err)
}

func (e *InternalError) Unwrap() error { return errors.Join(ErrInternal, e.Err) }
