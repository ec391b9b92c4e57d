package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	dalmock "github.com/mzansicare/backend/cmd/svc/careapi/internal/dal/mock"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/power"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/test"
	"github.com/mzansicare/backend/libs/testhelpers/mock"
)

func TestPowerStatus(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stage": 4}`))
	}))
	defer feed.Close()

	clk := clock.NewManaged(time.Date(2026, 6, 15, 18, 0, 0, 0, time.UTC))
	dl := dalmock.New(t)
	defer dl.Finish()
	dl.Expect(mock.NewExpectation(dl.InsertPowerReading, &models.PowerReading{
		Stage:    4,
		Source:   "eskom",
		Recorded: clk.Now(),
	}).WithReturns(int64(1), nil))

	monitor := power.NewMonitor(dl, feed.URL, "eskom", clk, nil)
	test.OK(t, monitor.Poll(context.Background()))

	h := NewPowerStatus(monitor)
	w := httptest.NewRecorder()
	r, err := http.NewRequest("GET", "/power/status", nil)
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusOK, w)
	test.Assert(t, strings.Contains(w.Body.String(), `"stage":4`), "expected stage in response")
}

func TestPowerStatusNoData(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	dl.Expect(mock.NewExpectation(dl.LatestPowerReading).WithReturns(
		(*models.PowerReading)(nil), errors.Trace(dal.ErrNotFound)))

	monitor := power.NewMonitor(dl, "http://localhost:0", "eskom", nil, nil)
	h := NewPowerStatus(monitor)
	w := httptest.NewRecorder()
	r, err := http.NewRequest("GET", "/power/status", nil)
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusNotFound, w)
}

func TestPowerHistoryBadHours(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	monitor := power.NewMonitor(dl, "http://localhost:0", "eskom", nil, nil)
	h := NewPowerHistory(monitor)
	w := httptest.NewRecorder()
	r, err := http.NewRequest("GET", "/power/history?hours=720", nil)
	test.OK(t, err)
	h.ServeHTTP(w, r)
	test.HTTPResponseCode(t, http.StatusBadRequest, w)
}
