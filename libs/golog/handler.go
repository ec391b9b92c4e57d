package golog

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Formatter renders a log entry to bytes including any trailing newline.
type Formatter interface {
	Format(e *Entry) []byte
}

type writerHandler struct {
	mu  sync.Mutex
	w   io.Writer
	fmt Formatter
}

// WriterHandler returns a handler that writes formatted entries to w.
func WriterHandler(w io.Writer, f Formatter) Handler {
	return &writerHandler{w: w, fmt: f}
}

func (h *writerHandler) Log(e *Entry) error {
	b := h.fmt.Format(e)
	h.mu.Lock()
	_, err := h.w.Write(b)
	h.mu.Unlock()
	return err
}

type splitHandler struct {
	lvl  Level
	low  Handler
	high Handler
}

// SplitHandler routes entries at or above lvl (more severe) to high and
// the rest to low. Severity decreases with increasing Level value.
func SplitHandler(lvl Level, low, high Handler) Handler {
	return &splitHandler{lvl: lvl, low: low, high: high}
}

func (h *splitHandler) Log(e *Entry) error {
	if e.Lvl <= h.lvl {
		return h.high.Log(e)
	}
	return h.low.Log(e)
}

type logfmtFormatter struct{}

// LogfmtFormatter returns a formatter that renders entries as
// key=value pairs on a single line.
func LogfmtFormatter() Formatter {
	return logfmtFormatter{}
}

func (logfmtFormatter) Format(e *Entry) []byte {
	var b bytes.Buffer
	b.WriteString("t=")
	b.WriteString(e.Time.UTC().Format("2006-01-02T15:04:05.000Z0700"))
	b.WriteString(" lvl=")
	b.WriteString(e.Lvl.String())
	b.WriteString(" msg=")
	b.WriteString(quoteIfNeeded(e.Msg))
	if e.Src != "" {
		b.WriteString(" src=")
		b.WriteString(quoteIfNeeded(e.Src))
	}
	for i := 0; i+1 < len(e.Ctx); i += 2 {
		k, ok := e.Ctx[i].(string)
		if !ok {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(toString(e.Ctx[i+1])))
	}
	b.WriteByte('\n')
	return b.Bytes()
}

type jsonFormatter struct{}

// JSONFormatter returns a formatter that renders entries as one JSON
// object per line.
func JSONFormatter() Formatter {
	return jsonFormatter{}
}

func (jsonFormatter) Format(e *Entry) []byte {
	m := make(map[string]interface{}, 4+len(e.Ctx)/2)
	m["t"] = e.Time.UTC()
	m["lvl"] = e.Lvl.String()
	m["msg"] = e.Msg
	if e.Src != "" {
		m["src"] = e.Src
	}
	for i := 0; i+1 < len(e.Ctx); i += 2 {
		if k, ok := e.Ctx[i].(string); ok {
			m[k] = e.Ctx[i+1]
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		b = []byte(`{"lvl":"ERR","msg":"golog: failed to marshal log entry"}`)
	}
	return append(b, '\n')
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case error:
		return s.Error()
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case bool:
		return strconv.FormatBool(s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(b)
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}
