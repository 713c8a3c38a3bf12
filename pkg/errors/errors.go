// Package errors provides the error handling and warning system shared by the
// whole library. Error types carry structured fields and zerolog marshaling so
// that failures surface in logs with full context and stack traces.
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler logs to standard error output.
		log.Printf("netcraft-warning: %v\n", w)
	}
	// zerolog warn hook (lazily installed to avoid an import cycle with pkg/log)
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the library-wide warning handler. It controls how
// non-fatal conditions such as skipped degenerate trees are reported.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs the zerolog warning sink (set by pkg/log to
// avoid a circular import).
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn raises a warning. If zerolog is wired up the warning is emitted as a
// structured log event, otherwise the plain handler is used.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// DegenerateTreeWarning is raised when one tree of an ensemble cannot be
// built (for example from a degenerate bootstrap sample) and is skipped so
// that the remaining trees still form a usable model.
type DegenerateTreeWarning struct {
	TreeIndex int
	Reason    string
}

func (w *DegenerateTreeWarning) Error() string {
	return fmt.Sprintf("tree %d skipped during ensemble training: %s", w.TreeIndex, w.Reason)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *DegenerateTreeWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("tree_index", w.TreeIndex).
		Str("reason", w.Reason).
		Str("type", "DegenerateTreeWarning")
}

// NewDegenerateTreeWarning creates a new DegenerateTreeWarning.
func NewDegenerateTreeWarning(treeIndex int, reason string) *DegenerateTreeWarning {
	return &DegenerateTreeWarning{TreeIndex: treeIndex, Reason: reason}
}

// UndefinedMetricWarning is raised when an evaluation metric cannot be
// computed, for example an OOB score over an empty out-of-bag set.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // value returned under this condition
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotTrainedError reports that Predict, Score or Serialize was called on a
// model that has not completed training.
type NotTrainedError struct {
	ModelName string
	Method    string
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("netcraft: %s: this model is not trained yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotTrainedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotTrainedError")
}

// NewNotTrainedError creates a NotTrainedError with a stack trace attached.
func NewNotTrainedError(modelName, method string) error {
	err := &NotTrainedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError reports that input data has a different shape than the
// model expects, such as a feature vector of the wrong length.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("netcraft: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError reports a single invalid parameter value, for example a
// bootstrap sample ratio outside (0, 1].
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("netcraft: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ConfigError aggregates every validation failure found in a configuration
// so that all violated constraints surface in one message rather than one
// per call.
type ConfigError struct {
	Violations []*ValidationError
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("netcraft: invalid configuration (%d violation(s)):", len(e.Violations)))
	for _, v := range e.Violations {
		sb.WriteString(fmt.Sprintf("\n  - %s: %s (got: %v)", v.ParamName, v.Reason, v.Value))
	}
	return sb.String()
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ConfigError) MarshalZerologObject(event *zerolog.Event) {
	params := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		params[i] = v.ParamName
	}
	event.Strs("params", params).
		Int("violations", len(e.Violations)).
		Str("type", "ConfigError")
}

// NewConfigError creates a ConfigError from the given violations, with a
// stack trace attached. It returns nil when there are no violations.
func NewConfigError(violations ...*ValidationError) error {
	if len(violations) == 0 {
		return nil
	}
	err := &ConfigError{Violations: violations}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is unusable for the operation,
// such as an empty vector passed to a metric.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("netcraft: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError is a general error concerning a model.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("netcraft: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("netcraft: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace attached.
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Numerical error types
//
// ===========================================================================

// NumericalInstabilityError reports NaN, Inf or otherwise invalid values
// encountered mid-computation (impurity, prediction, variance). Callers in
// the tree builder handle it locally by skipping the offending candidate
// rather than aborting the whole ensemble.
type NumericalInstabilityError struct {
	Operation string                 // where it happened, e.g. "split_impurity"
	Values    []float64              // the offending values
	Context   map[string]interface{} // extra debugging context
	Iteration int                    // tree round or sample index
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("netcraft: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a
// stack trace attached.
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
		Context:   make(map[string]interface{}),
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error variables
//
// ===========================================================================

var (
	// ErrNotImplemented reports an unimplemented feature.
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData reports that empty data was supplied.
	ErrEmptyData = New("empty data")
)
