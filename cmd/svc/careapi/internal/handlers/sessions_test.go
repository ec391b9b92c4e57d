package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	dalmock "github.com/mzansicare/backend/cmd/svc/careapi/internal/dal/mock"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/test"
	"github.com/mzansicare/backend/libs/testhelpers/mock"
)

func TestSessionsCreate(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	patientID, err := models.ParsePatientID("pt_000000000016I")
	test.OK(t, err)
	sessionID, err := models.ParseSessionID("ts_000000000016I")
	test.OK(t, err)
	scheduled := time.Date(2040, 1, 1, 10, 0, 0, 0, time.UTC)

	dl.Expect(mock.NewExpectation(dl.Patient, patientID).WithReturns(
		&models.Patient{ID: patientID, Name: "Nomvula Khumalo", Age: 34, Status: models.PatientStatusActive}, nil))
	dl.Expect(mock.NewExpectation(dl.CreateSession, &models.Session{
		PatientID:        patientID,
		Clinician:        "Dr. Naidoo",
		ScheduledTime:    scheduled,
		Status:           models.SessionStatusScheduled,
		ConsultationType: "general",
		Priority:         "routine",
	}).WithReturns(sessionID, nil))

	h := NewSessions(dl, newTestAuditLogger(), clk)
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/sessions", strings.NewReader(
		`{"patient_id": "pt_000000000016I", "clinician": "Dr. Naidoo", "scheduled_time": "2040-01-01T10:00:00Z", "consultation_type": "general", "priority": "routine"}`))
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusCreated, w)
}

func TestSessionsCreatePastTime(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	h := NewSessions(dl, newTestAuditLogger(), clk)
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/sessions", strings.NewReader(
		`{"patient_id": "pt_000000000016I", "clinician": "Dr. Naidoo", "scheduled_time": "1999-01-01T10:00:00Z"}`))
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusBadRequest, w)
}

func TestSessionsCreateUnknownPatient(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	patientID, err := models.ParsePatientID("pt_000000000016I")
	test.OK(t, err)
	dl.Expect(mock.NewExpectation(dl.Patient, patientID).WithReturns(
		(*models.Patient)(nil), errors.Trace(dal.ErrNotFound)))

	h := NewSessions(dl, newTestAuditLogger(), clk)
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/sessions", strings.NewReader(
		`{"patient_id": "pt_000000000016I", "clinician": "Dr. Naidoo", "scheduled_time": "2040-01-01T10:00:00Z"}`))
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusBadRequest, w)
}

func TestSessionStatusChange(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	patientID, err := models.ParsePatientID("pt_000000000016I")
	test.OK(t, err)
	sessionID, err := models.ParseSessionID("ts_000000000016I")
	test.OK(t, err)
	status := models.SessionStatusWaiting

	scheduled := &models.Session{
		ID:        sessionID,
		PatientID: patientID,
		Status:    models.SessionStatusScheduled,
	}
	updated := &models.Session{
		ID:        sessionID,
		PatientID: patientID,
		Status:    status,
	}
	dl.Expect(mock.NewExpectation(dl.Session, sessionID).WithReturns(scheduled, nil))
	dl.Expect(mock.NewExpectation(dl.UpdateSession, sessionID, &dal.SessionUpdate{Status: &status}).WithReturns(int64(1), nil))
	dl.Expect(mock.NewExpectation(dl.Session, sessionID).WithReturns(updated, nil))

	h := NewSessionStatus(dl, newTestAuditLogger())
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/sessions/ts_000000000016I/status", strings.NewReader(`{"status": "WAITING"}`))
	test.OK(t, err)
	r = mux.SetURLVars(r, map[string]string{"id": "ts_000000000016I"})
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusOK, w)
	test.Assert(t, strings.Contains(w.Body.String(), "WAITING"), "expected updated status in response")
}

func TestSessionStatusBadTransition(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	patientID, err := models.ParsePatientID("pt_000000000016I")
	test.OK(t, err)
	sessionID, err := models.ParseSessionID("ts_000000000016I")
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.Session, sessionID).WithReturns(
		&models.Session{
			ID:        sessionID,
			PatientID: patientID,
			Status:    models.SessionStatusCompleted,
		}, nil))

	h := NewSessionStatus(dl, newTestAuditLogger())
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/sessions/ts_000000000016I/status", strings.NewReader(`{"status": "IN_PROGRESS"}`))
	test.OK(t, err)
	r = mux.SetURLVars(r, map[string]string{"id": "ts_000000000016I"})
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusConflict, w)
}

func TestSessionRescheduleTerminal(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	patientID, err := models.ParsePatientID("pt_000000000016I")
	test.OK(t, err)
	sessionID, err := models.ParseSessionID("ts_000000000016I")
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.Session, sessionID).WithReturns(
		&models.Session{
			ID:        sessionID,
			PatientID: patientID,
			Status:    models.SessionStatusCancelled,
		}, nil))

	h := NewSessionReschedule(dl, newTestAuditLogger(), clk)
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/sessions/ts_000000000016I/reschedule", strings.NewReader(
		`{"scheduled_time": "2040-01-01T10:00:00Z"}`))
	test.OK(t, err)
	r = mux.SetURLVars(r, map[string]string{"id": "ts_000000000016I"})
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusConflict, w)
}
