package handlers

import (
	"net/http"
	"time"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/power"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/httputil"
)

type powerStatusHandler struct {
	monitor *power.Monitor
}

// NewPowerStatus returns the handler for the current load-shedding status.
func NewPowerStatus(monitor *power.Monitor) http.Handler {
	return httputil.SupportedMethods(&powerStatusHandler{monitor: monitor}, httputil.Get)
}

func (h *powerStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, err := h.monitor.Current(r.Context())
	if errors.Cause(err) == power.ErrNoReading {
		httputil.JSONNotFound(w, "No load-shedding data available yet")
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, status)
}

type powerHistoryHandler struct {
	monitor *power.Monitor
}

// NewPowerHistory returns the handler for recent load-shedding readings.
func NewPowerHistory(monitor *power.Monitor) http.Handler {
	return httputil.SupportedMethods(&powerHistoryHandler{monitor: monitor}, httputil.Get)
}

type powerHistoryRequest struct {
	Hours int `schema:"hours"`
}

type powerReadingResponse struct {
	Stage    int       `json:"stage"`
	Source   string    `json:"source"`
	Recorded time.Time `json:"recorded"`
}

func (h *powerHistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := powerHistoryRequest{Hours: 24}
	if err := queryDecoder.Decode(&req, r.URL.Query()); err != nil {
		httputil.JSONBadRequest(w, "Could not parse query parameters")
		return
	}
	if req.Hours < 1 || req.Hours > 24*7 {
		httputil.JSONBadRequest(w, "hours must be between 1 and 168")
		return
	}

	readings, err := h.monitor.History(r.Context(), time.Now().Add(-time.Duration(req.Hours)*time.Hour))
	if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	res := make([]*powerReadingResponse, len(readings))
	for i, reading := range readings {
		res[i] = &powerReadingResponse{
			Stage:    reading.Stage,
			Source:   reading.Source,
			Recorded: reading.Recorded,
		}
	}
	httputil.JSONResponse(w, http.StatusOK, map[string]interface{}{"readings": res})
}
