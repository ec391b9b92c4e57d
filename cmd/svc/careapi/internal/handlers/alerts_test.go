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
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/notify"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/test"
	"github.com/mzansicare/backend/libs/testhelpers/mock"
)

func TestAlertsCreate(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	alertID, err := models.ParseAlertID("al_000000000016I")
	test.OK(t, err)
	dl.Expect(mock.NewExpectation(dl.CreateAlert, &models.Alert{
		Title:       "Clinic closed",
		Description: "Water outage at the clinic",
		Location:    "Khayelitsha",
		Severity:    models.AlertSeverityWarning,
		Active:      true,
	}).WithReturns(alertID, nil))

	h := NewAlerts(dl, notify.NewPublisher(nil, "", nil), newTestAuditLogger())
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/alerts", strings.NewReader(
		`{"title": "Clinic closed", "description": "Water outage at the clinic", "location": "Khayelitsha", "severity": "warning"}`))
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusCreated, w)
}

func TestAlertsCreateValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing title", `{"description": "something", "severity": "warning"}`},
		{"bad severity", `{"title": "Clinic closed", "severity": "catastrophic"}`},
	}
	for _, c := range cases {
		dl := dalmock.New(t)

		h := NewAlerts(dl, notify.NewPublisher(nil, "", nil), newTestAuditLogger())
		w := httptest.NewRecorder()
		r, err := http.NewRequest("POST", "/alerts", strings.NewReader(c.body))
		test.OK(t, err)
		h.ServeHTTP(w, r)
		test.HTTPResponseCode(t, http.StatusBadRequest, w)
		dl.Finish()
	}
}

func TestAlertsListActive(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	alertID, err := models.ParseAlertID("al_000000000016I")
	test.OK(t, err)
	dl.Expect(mock.NewExpectation(dl.ListAlerts, true).WithReturns(
		[]*models.Alert{
			{ID: alertID, Title: "Clinic closed", Severity: models.AlertSeverityWarning, Active: true},
		}, nil))

	h := NewAlerts(dl, notify.NewPublisher(nil, "", nil), newTestAuditLogger())
	w := httptest.NewRecorder()
	r, err := http.NewRequest("GET", "/alerts?active=true", nil)
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusOK, w)
	test.Assert(t, strings.Contains(w.Body.String(), "Clinic closed"), "expected alert in response")
}

func TestAlertAck(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	alertID, err := models.ParseAlertID("al_000000000016I")
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.Alert, alertID).WithReturns(
		&models.Alert{ID: alertID, Title: "Clinic closed", Severity: models.AlertSeverityWarning, Active: true}, nil))
	now := clk.Now()
	active := false
	dl.Expect(mock.NewExpectation(dl.UpdateAlert, alertID, &dal.AlertUpdate{
		Active:       &active,
		Acknowledged: &now,
	}).WithReturns(int64(1), nil))

	h := NewAlertAck(dl, newTestAuditLogger(), clk)
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/alerts/al_000000000016I/ack", nil)
	test.OK(t, err)
	r = mux.SetURLVars(r, map[string]string{"id": "al_000000000016I"})
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusOK, w)
}

func TestAlertAckNotFound(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	alertID, err := models.ParseAlertID("al_000000000016I")
	test.OK(t, err)
	dl.Expect(mock.NewExpectation(dl.Alert, alertID).WithReturns(
		(*models.Alert)(nil), errors.Trace(dal.ErrNotFound)))

	h := NewAlertAck(dl, newTestAuditLogger(), clock.NewManaged(time.Unix(1e9, 0)))
	w := httptest.NewRecorder()
	r, err := http.NewRequest("POST", "/alerts/al_000000000016I/ack", nil)
	test.OK(t, err)
	r = mux.SetURLVars(r, map[string]string{"id": "al_000000000016I"})
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusNotFound, w)
}
