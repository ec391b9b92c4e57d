// Package errors provides error utilities including call site traces and
// annotations for debugging context.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// New returns an error with the provided message.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf returns an error with a formatted message.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

type traced struct {
	err         error
	trace       []string
	annotations []string
}

func (t *traced) Error() string {
	msg := t.err.Error()
	if len(t.annotations) != 0 {
		msg += " (" + strings.Join(t.annotations, "; ") + ")"
	}
	return msg + " [" + strings.Join(t.trace, ", ") + "]"
}

// Trace wraps an error recording the file:line of the call site. Wrapping
// a traced error appends to the existing trace. Trace(nil) returns nil.
func Trace(err error) error {
	if err == nil {
		return nil
	}
	if t, ok := err.(*traced); ok {
		t.trace = append(t.trace, callSite(2))
		return t
	}
	return &traced{err: err, trace: []string{callSite(2)}}
}

// Annotate adds context to an error that is useful for debugging without
// changing the error's cause. Annotate(nil, ...) returns nil.
func Annotate(err error, msg string) error {
	if err == nil {
		return nil
	}
	t, ok := err.(*traced)
	if !ok {
		t = &traced{err: err, trace: []string{callSite(2)}}
	}
	t.annotations = append(t.annotations, msg)
	return t
}

// Annotatef adds formatted context to an error.
func Annotatef(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Annotate(err, fmt.Sprintf(format, args...))
}

// Annotations returns all annotations attached to an error.
func Annotations(err error) []string {
	if t, ok := err.(*traced); ok {
		return t.annotations
	}
	return nil
}

// Cause returns the underlying error with any trace wrappers removed.
func Cause(err error) error {
	for {
		t, ok := err.(*traced)
		if !ok {
			return err
		}
		err = t.err
	}
}

// StackTrace returns the recorded call sites for a traced error, innermost
// first. It returns nil for untraced errors.
func StackTrace(err error) []string {
	if t, ok := err.(*traced); ok {
		return t.trace
	}
	return nil
}

func callSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	short := file
	depth := 0
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			depth++
			if depth == 2 {
				break
			}
		}
	}
	return short + ":" + strconv.Itoa(line)
}
