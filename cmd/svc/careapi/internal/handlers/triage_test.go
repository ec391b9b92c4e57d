package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/triage"
	"github.com/mzansicare/backend/libs/test"
)

func TestTriageAssess(t *testing.T) {
	engine, err := triage.NewEngine(triage.DefaultRules)
	test.OK(t, err)

	h := NewTriage(engine, newTestAuditLogger())
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/triage/assess", strings.NewReader(
		`{"symptoms": "crushing chest pain and shortness of breath"}`))
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusOK, w)

	var res triage.Assessment
	test.OK(t, json.Unmarshal(w.Body.Bytes(), &res))
	test.Equals(t, triage.RiskCritical, res.Risk)
	test.Equals(t, triage.UrgencyEmergency, res.Urgency)
}

func TestTriageAssessUnrecognized(t *testing.T) {
	engine, err := triage.NewEngine(triage.DefaultRules)
	test.OK(t, err)

	h := NewTriage(engine, newTestAuditLogger())
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/triage/assess", strings.NewReader(`{"symptoms": "hiccups"}`))
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusOK, w)

	var res triage.Assessment
	test.OK(t, json.Unmarshal(w.Body.Bytes(), &res))
	test.Equals(t, triage.RiskLow, res.Risk)
}
