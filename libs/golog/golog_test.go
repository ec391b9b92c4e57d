package golog

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type captureHandler struct {
	entries []*Entry
}

func (h *captureHandler) Log(e *Entry) error {
	h.entries = append(h.entries, e)
	return nil
}

func TestLevelFiltering(t *testing.T) {
	h := &captureHandler{}
	l := Default().Context()
	l.SetHandler(h)
	l.SetLevel(WARN)

	l.Debugf("dropped")
	l.Infof("dropped")
	l.Warningf("kept")
	l.Errorf("kept")
	if len(h.entries) != 2 {
		t.Fatalf("expected 2 entries got %d", len(h.entries))
	}
	if h.entries[0].Lvl != WARN || h.entries[1].Lvl != ERR {
		t.Fatalf("unexpected levels: %v %v", h.entries[0].Lvl, h.entries[1].Lvl)
	}
}

func TestContextChaining(t *testing.T) {
	h := &captureHandler{}
	l := Default().Context("service", "careapi")
	l.SetHandler(h)
	l.Context("request_id", uint64(99)).Infof("hello")
	if len(h.entries) != 1 {
		t.Fatalf("expected 1 entry got %d", len(h.entries))
	}
	e := h.entries[0]
	if len(e.Ctx) != 4 {
		t.Fatalf("expected 4 context values got %d", len(e.Ctx))
	}
	if e.Ctx[0] != "service" || e.Ctx[2] != "request_id" {
		t.Fatalf("unexpected context keys: %v", e.Ctx)
	}
}

func TestLogfmtFormatter(t *testing.T) {
	e := &Entry{
		Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Lvl:  INFO,
		Msg:  "hello world",
		Ctx:  []interface{}{"k", "v"},
	}
	out := string(LogfmtFormatter().Format(e))
	for _, want := range []string{`lvl=INFO`, `msg="hello world"`, `k=v`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected trailing newline: %q", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	e := &Entry{Time: time.Now(), Lvl: ERR, Msg: "boom", Ctx: []interface{}{"n", 1}}
	out := JSONFormatter().Format(e)
	if !bytes.HasPrefix(out, []byte("{")) || !bytes.HasSuffix(out, []byte("}\n")) {
		t.Fatalf("not a JSON line: %q", out)
	}
	for _, want := range []string{`"lvl":"ERR"`, `"msg":"boom"`, `"n":1`} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
