// Package diag defines the structured error reports shared by every
// compiler phase. All fallible steps return plain errors; a Report can be
// recovered from the chain with AsReport when callers need the code, the
// phase, or the breadcrumb path.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes, one per failure class.
const (
	CodeParseError         = "ParseError"
	CodeDependencyCycle    = "DependencyCycle"
	CodeUnresolvedRef      = "UnresolvedReference"
	CodeUnsupported        = "UnsupportedConstruct"
	CodeBadModuleEncoding  = "BadModuleEncoding"
	CodeInvariantViolation = "CompilerInvariantViolation"
)

// Report is the canonical structured error.
type Report struct {
	Code    string   // one of the Code constants
	Phase   string   // "parse", "frontend", "emit", "codec", "pipeline"
	Message string   // human-readable message
	Path    []string // breadcrumb of the failing location, outermost first
}

// ReportError wraps a Report so it survives errors.As unwrapping.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	msg := e.Rep.Code + ": " + e.Rep.Message
	if len(e.Rep.Path) > 0 {
		msg += " (at " + strings.Join(e.Rep.Path, " -> ") + ")"
	}
	return msg
}

// AsReport extracts a Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// New builds a report error.
func New(code, phase, format string, args ...any) error {
	return &ReportError{Rep: &Report{
		Code:    code,
		Phase:   phase,
		Message: fmt.Sprintf(format, args...),
	}}
}

// WithPath prepends a breadcrumb element to a report error; other errors
// pass through wrapped with the element as a message prefix.
func WithPath(err error, element string) error {
	if err == nil {
		return nil
	}
	var re *ReportError
	if errors.As(err, &re) && re.Rep != nil {
		rep := *re.Rep
		rep.Path = append([]string{element}, rep.Path...)
		return &ReportError{Rep: &rep}
	}
	return fmt.Errorf("%s: %w", element, err)
}

// UnresolvedReference builds the standard unresolved-name error.
func UnresolvedReference(phase, name, scope string) error {
	return New(CodeUnresolvedRef, phase, "cannot resolve reference %q in %s", name, scope)
}

// DependencyCycle builds the standard cycle error for a dependency path.
func DependencyCycle(phase string, cycle []string) error {
	return New(CodeDependencyCycle, phase, "dependency cycle: %s", strings.Join(cycle, " -> "))
}
