// Package mock provides expectation based mocks for interfaces used in tests.
package mock

import (
	"reflect"
	"runtime"
	"testing"
)

// Expectation is a single expected call with optional staged returns.
type Expectation struct {
	Func    interface{}
	Params  []interface{}
	Returns []interface{}
}

// NewExpectation returns an expectation for a call to fn with the provided params.
func NewExpectation(fn interface{}, params ...interface{}) *Expectation {
	return &Expectation{
		Func:   fn,
		Params: params,
	}
}

// WithReturns stages the values Record hands back when the expectation is consumed.
func (e *Expectation) WithReturns(returns ...interface{}) *Expectation {
	e.Returns = returns
	return e
}

// Expector tracks expected calls for a mock. Embed a pointer to it in the
// mock struct and call Record from each mocked method.
type Expector struct {
	T            testing.TB
	expectations []*Expectation
	recorded     int
}

// Expect appends an expectation to the ordered list of expected calls.
func (e *Expector) Expect(exp *Expectation) {
	e.expectations = append(e.expectations, exp)
}

// Record matches the calling method against the next expectation and returns
// its staged return values. If nothing was expected it returns nil so the
// mock can fall back to zero values.
func (e *Expector) Record(params ...interface{}) []interface{} {
	if e == nil || e.T == nil {
		return nil
	}
	e.recorded++
	if len(e.expectations) == 0 {
		e.T.Fatalf("mock: received unexpected call %s(%+v)", callerName(), params)
		return nil
	}
	exp := e.expectations[0]
	e.expectations = e.expectations[1:]

	expName := funcName(exp.Func)
	gotName := callerName()
	if !matchingNames(expName, gotName) {
		e.T.Fatalf("mock: expected call to %s but got %s", expName, gotName)
		return nil
	}
	if !reflect.DeepEqual(exp.Params, params) {
		e.T.Fatalf("mock: call %s\nexpected params: %+v\nreceived params: %+v", gotName, exp.Params, params)
		return nil
	}
	return exp.Returns
}

// Finish asserts that every expectation was consumed.
func (e *Expector) Finish() {
	if len(e.expectations) != 0 {
		e.T.Fatalf("mock: %d expected calls never happened, next: %s", len(e.expectations), funcName(e.expectations[0].Func))
	}
}

// SafeError type asserts an error from a staged return value, tolerating nil.
func SafeError(v interface{}) error {
	if v == nil {
		return nil
	}
	return v.(error)
}

func funcName(fn interface{}) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return "<not a func>"
	}
	return runtime.FuncForPC(v.Pointer()).Name()
}

func callerName() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "<unknown>"
	}
	return runtime.FuncForPC(pc).Name()
}

// matchingNames compares function names ignoring package qualification and
// the -fm suffix the runtime adds to method values.
func matchingNames(a, b string) bool {
	return trimName(a) == trimName(b)
}

func trimName(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' || s[i] == '/' {
			s = s[i+1:]
			break
		}
	}
	if len(s) > 3 && s[len(s)-3:] == "-fm" {
		s = s[:len(s)-3]
	}
	return s
}
