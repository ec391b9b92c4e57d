package errors

import (
	"strings"
	"testing"
)

func TestTraceNil(t *testing.T) {
	if Trace(nil) != nil {
		t.Fatal("Trace(nil) should be nil")
	}
	if Annotate(nil, "x") != nil {
		t.Fatal("Annotate(nil) should be nil")
	}
}

func TestTraceAndCause(t *testing.T) {
	base := New("boom")
	err := Trace(base)
	if Cause(err) != base {
		t.Fatalf("expected cause %v got %v", base, Cause(err))
	}
	err = Trace(err)
	if Cause(err) != base {
		t.Fatalf("expected cause preserved through rewrap, got %v", Cause(err))
	}
	if n := len(StackTrace(err)); n != 2 {
		t.Fatalf("expected 2 call sites got %d", n)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("message lost: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "errors_test.go") {
		t.Fatalf("trace missing from message: %q", err.Error())
	}
}

func TestAnnotate(t *testing.T) {
	err := Annotate(New("boom"), "while reticulating")
	err = Annotatef(err, "attempt %d", 2)
	anns := Annotations(err)
	if len(anns) != 2 {
		t.Fatalf("expected 2 annotations got %d", len(anns))
	}
	if anns[0] != "while reticulating" || anns[1] != "attempt 2" {
		t.Fatalf("unexpected annotations: %v", anns)
	}
	if Cause(err).Error() != "boom" {
		t.Fatalf("unexpected cause: %v", Cause(err))
	}
}
