package httputil

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/samuel/go-metrics/metrics"

	"github.com/mzansicare/backend/libs/idgen"
)

var hostname string

func init() {
	var err error
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
}

type requestIDContextKey struct{}

// RequestID returns the request ID for an HTTP request. RequestIDHandler
// must be in the middleware chain for an ID to exist; otherwise 0 is returned.
func RequestID(ctx context.Context) uint64 {
	id, _ := ctx.Value(requestIDContextKey{}).(uint64)
	return id
}

// RequestIDHandler attaches a unique ID to every request's context.
func RequestIDHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := idgen.NewID()
		if err == nil {
			r = r.WithContext(context.WithValue(r.Context(), requestIDContextKey{}, id))
		}
		h.ServeHTTP(w, r)
	})
}

// RequestEvent is a request/response log event.
type RequestEvent struct {
	Timestamp       time.Time
	ResponseTime    time.Duration
	ServerHostname  string
	StatusCode      int
	ResponseHeaders http.Header
	Request         *http.Request
	// URL is copied before calling sub handlers as they may modify the
	// request URL (e.g. http.StripPrefix).
	URL *url.URL
	// RemoteAddr is r.RemoteAddr with any port number removed.
	RemoteAddr string
	// Panic and StackTrace are set if a sub handler panicked.
	Panic      interface{}
	StackTrace []byte
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(status int) {
	w.statusCode = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// LoggingHandler invokes logFn with a RequestEvent after every request,
// including requests that panicked. Panics are converted to 500 responses.
func LoggingHandler(h http.Handler, logFn func(context.Context, *RequestEvent)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w}
		urlCopy := *r.URL
		ev := &RequestEvent{
			Timestamp:      start,
			ServerHostname: hostname,
			Request:        r,
			URL:            &urlCopy,
			RemoteAddr:     stripPort(r.RemoteAddr),
		}
		defer func() {
			if p := recover(); p != nil {
				ev.Panic = p
				ev.StackTrace = debug.Stack()
				if !sw.wroteHeader {
					http.Error(sw, "Internal error", http.StatusInternalServerError)
				}
			}
			ev.StatusCode = sw.statusCode
			ev.ResponseTime = time.Since(start)
			ev.ResponseHeaders = sw.Header()
			logFn(r.Context(), ev)
		}()
		h.ServeHTTP(sw, r)
	})
}

// MetricsHandler records request counts and latency against the provided registry.
func MetricsHandler(h http.Handler, registry metrics.Registry) http.Handler {
	requests := metrics.NewCounter()
	errors5xx := metrics.NewCounter()
	errors4xx := metrics.NewCounter()
	latency := metrics.NewUnbiasedHistogram()
	registry.Add("requests/total", requests)
	registry.Add("requests/error/5xx", errors5xx)
	registry.Add("requests/error/4xx", errors4xx)
	registry.Add("requests/latency_us", latency)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w}
		defer func() {
			requests.Inc(1)
			switch {
			case sw.statusCode >= 500:
				errors5xx.Inc(1)
			case sw.statusCode >= 400:
				errors4xx.Inc(1)
			}
			latency.Update(time.Since(start).Microseconds())
		}()
		h.ServeHTTP(sw, r)
	})
}

type supportedMethods struct {
	methods []string
	handler http.Handler
}

// SupportedMethods wraps a handler checking the request method against the
// provided list. Unexpected methods get StatusMethodNotAllowed along with
// the list of allowed methods in the "Allow" header.
func SupportedMethods(h http.Handler, methods ...string) http.Handler {
	sort.Strings(methods)
	return &supportedMethods{methods: methods, handler: h}
}

func (sm *supportedMethods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, m := range sm.methods {
		if r.Method == m {
			sm.handler.ServeHTTP(w, r)
			return
		}
	}
	w.Header().Set("Allow", strings.Join(sm.methods, ", "))
	if r.Method == Options {
		w.WriteHeader(http.StatusOK)
	} else {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
