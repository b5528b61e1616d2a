package report

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// TextSpan represents a range or "span" of source text. Text spans are
// inclusive on both sides: the starting position is the position of the first
// character in the span and the ending position is the position of the last
// character in the span.  The line and column numbers are zero-indexed.
type TextSpan struct {
	// The line and column beginning the text span.
	StartLine, StartCol int

	// The line and column ending the text span.
	EndLine, EndCol int
}

// NewSpanOver returns a new text span which spans over and between the two
// given text spans.
func NewSpanOver(start, end *TextSpan) *TextSpan {
	return &TextSpan{
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// -----------------------------------------------------------------------------

// InternalError is raised when an internal-consistency invariant of the
// compiler is violated: a builder precondition, a double-forwarded cleanup, a
// type lowering mismatch, etc.  These are never the result of user input.
type InternalError struct {
	// The error message.
	Message string

	// The source location inside the compiler that raised the error.
	Where string
}

func (ie *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error: %s (at %s)", ie.Message, ie.Where)
}

// FatalError is raised when compilation cannot proceed because of a broken
// environment: eg. a required runtime support declaration is missing.
type FatalError struct {
	Message string
}

func (fe *FatalError) Error() string {
	return "fatal error: " + fe.Message
}

// -----------------------------------------------------------------------------

// ReportICE reports an internal compiler error.  These are errors that
// specifically result for a bug or unexpected condition occurring with the
// compiler: they are not intended to ever happen.  ReportICE never returns: it
// panics with an *InternalError which is caught by CatchErrors.
func ReportICE(message string, args ...interface{}) {
	ie := &InternalError{Message: fmt.Sprintf(message, args...), Where: callerWhere(2)}

	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		displayICE(ie.Message)
		rep.m.Unlock()
	}

	panic(ie)
}

// ReportFatal reports a fatal error.  These are errors that should cause all
// compilation to stop immediately.  However, they are expected errors that
// generally result from invalid configuration of some form: eg. a missing
// runtime support function.  ReportFatal never returns.
func ReportFatal(message string, args ...interface{}) {
	fe := &FatalError{Message: fmt.Sprintf(message, args...)}

	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		displayFatal(fe.Message)
		rep.m.Unlock()
	}

	panic(fe)
}

// ReportCompileError reports a compilation error. The absPath is the absolute
// path to the erroneous source file. The reprPath is the representative path
// to the erroneous source file.  The span may be nil in which case no position
// information will be printed.
func ReportCompileError(absPath, reprPath string, span *TextSpan, message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.isErr = true

	if rep.logLevel > LogLevelSilent {
		displayCompileMessage("error", absPath, reprPath, span, fmt.Sprintf(message, args...))
	}
}

// ReportCompileWarning reports a compilation warning.  The arguments are of the
// same form as those to ReportCompileError.
func ReportCompileWarning(absPath, reprPath string, span *TextSpan, message string, args ...interface{}) {
	if rep.logLevel > LogLevelError {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayCompileMessage("warning", absPath, reprPath, span, fmt.Sprintf(message, args...))
	}
}

// -----------------------------------------------------------------------------

// CatchErrors catches any internal or fatal errors raised by a `panic` during
// lowering and stores them in err.  Any other panic is propagated.
// NB: This function must ALWAYS be deferred.
func CatchErrors(err *error) {
	if x := recover(); x != nil {
		switch v := x.(type) {
		case *InternalError:
			*err = v
		case *FatalError:
			*err = v
		default:
			panic(x)
		}
	}
}

// callerWhere returns the `file:line` of the function skip frames above the
// caller of callerWhere.
func callerWhere(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "<unknown>"
	}

	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
